package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryIsValid(t *testing.T) {
	specs := Registry()
	require.Len(t, specs, 4)

	for _, s := range specs {
		assert.NoError(t, s.Validate(), s.Name)
	}

	// Communes first: city consolidation gates the station lookups.
	assert.Equal(t, "communes", specs[0].Name)
	assert.Equal(t, KindCommunes, specs[0].Kind)
}

func TestRegistryPrefixCodes(t *testing.T) {
	byName := make(map[string]Spec)
	for _, s := range Registry() {
		byName[s.Name] = s
	}

	assert.Equal(t, 1, byName["paris"].PrefixCode)
	assert.Equal(t, 0, byName["toulouse"].PrefixCode)
	assert.Equal(t, 2, byName["nantes"].PrefixCode)
}

func TestRegistryCommuneResolution(t *testing.T) {
	byName := make(map[string]Spec)
	for _, s := range Registry() {
		byName[s.Name] = s
	}

	// Paris carries the INSEE code inline; the contract feeds resolve by name.
	assert.Equal(t, "code_insee_commune", byName["paris"].Station.CityCode)
	assert.Empty(t, byName["paris"].LookupCity)
	assert.Equal(t, "Toulouse", byName["toulouse"].LookupCity)
	assert.Equal(t, "Nantes", byName["nantes"].LookupCity)
}

func TestApplyOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  paris:
    url: http://mirror.local/paris.json
  nantes:
    url: ""
`), 0o644))

	specs, err := ApplyOverrides(Registry(), path)
	require.NoError(t, err)

	byName := make(map[string]Spec)
	for _, s := range specs {
		byName[s.Name] = s
	}

	assert.Equal(t, "http://mirror.local/paris.json", byName["paris"].URL)
	// An empty override keeps the default.
	assert.NotEmpty(t, byName["nantes"].URL)
}

func TestApplyOverridesUnknownSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  lyon:
    url: http://mirror.local/lyon.json
`), 0o644))

	_, err := ApplyOverrides(Registry(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lyon")
}

func TestApplyOverridesMissingFile(t *testing.T) {
	_, err := ApplyOverrides(Registry(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsIncompleteSpecs(t *testing.T) {
	base := Registry()[1] // paris

	noCode := base
	noCode.Station.Code = ""
	assert.Error(t, noCode.Validate())

	noResolution := base
	noResolution.Station.CityCode = ""
	noResolution.LookupCity = ""
	assert.Error(t, noResolution.Validate())

	noURL := base
	noURL.URL = ""
	assert.Error(t, noURL.Validate())
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"ok":true}]`))
	}))
	defer srv.Close()

	data, err := Fetch(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `[{"ok":true}]`, string(data))
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
}
