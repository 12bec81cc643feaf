package region

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu          sync.Mutex
	byID        map[string]Institution
	byCode      map[string][]Institution
	collections map[string][]string // institution key -> collection codes
	calls       map[string]int
	err         error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		byID:        map[string]Institution{},
		byCode:      map[string][]Institution{},
		collections: map[string][]string{},
		calls:       map[string]int{},
	}
}

func (f *fakeRegistry) add(inst Institution, collections ...string) {
	f.byID[inst.Key] = inst
	f.byCode[inst.Code] = append(f.byCode[inst.Code], inst)
	f.collections[inst.Key] = collections
}

func (f *fakeRegistry) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRegistry) InstitutionByID(_ context.Context, id string) (Institution, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["id"]++
	if f.err != nil {
		return Institution{}, false, f.err
	}
	inst, ok := f.byID[id]
	return inst, ok, nil
}

func (f *fakeRegistry) InstitutionsByCode(_ context.Context, code string) ([]Institution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["code"]++
	if f.err != nil {
		return nil, f.err
	}
	return f.byCode[code], nil
}

func (f *fakeRegistry) HasCollection(_ context.Context, key, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["collection"]++
	for _, c := range f.collections[key] {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

type fakeGeo map[string]string

func (g fakeGeo) CountryForHost(_ context.Context, host string) (string, bool, error) {
	c, ok := g[host]
	return c, ok, nil
}

type fakeCountries map[string]string

func (c fakeCountries) RegionForCountry(_ context.Context, code string) (string, bool, error) {
	r, ok := c[code]
	return r, ok, nil
}

const (
	keyParis   = "6a6ac6c5-1b8a-48db-91a2-f8661274ff80"
	keyNoumea  = "0b1f0bd4-7ac5-4d36-9ae9-bf1fdd7a3c1e"
	keyBerlin  = "3d2b1c4a-1d2e-4f5a-8b6c-7d8e9f0a1b2c"
	keyUnknown = "00000000-0000-4000-8000-000000000000"
)

func mnhnRegistry() *fakeRegistry {
	reg := newFakeRegistry()
	reg.add(Institution{Key: keyParis, Code: "MNHN", Region: "Europe"}, "X", "P")
	reg.add(Institution{Key: keyNoumea, Code: "MNHN", Region: "Oceania"}, "NOU")
	return reg
}

func TestResolveMNHNCollectionScenario(t *testing.T) {
	r := NewResolver(mnhnRegistry(), nil, nil)

	res, err := r.Resolve(context.Background(), Query{InstitutionCode: "MNHN", CollectionCode: "X"})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Europe", res.Region)
	assert.Equal(t, StrategyCollectionCode, res.Strategy)
}

func TestResolveAmbiguousCodeWithoutCollectionIsUnresolved(t *testing.T) {
	r := NewResolver(mnhnRegistry(), nil, nil)

	res, err := r.Resolve(context.Background(), Query{InstitutionCode: "MNHN"})
	require.NoError(t, err)
	assert.Equal(t, Unresolved, res.Status)
	assert.Empty(t, res.Region)
}

func TestResolveSameRegionBeforeCollection(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(Institution{Key: keyParis, Code: "NHM", Region: "Europe"})
	reg.add(Institution{Key: keyBerlin, Code: "NHM", CountryCode: "DE"})
	r := NewResolver(reg, nil, fakeCountries{"DE": "Europe"})

	res, err := r.Resolve(context.Background(), Query{InstitutionCode: "NHM", CollectionCode: "ZZ"})
	require.NoError(t, err)
	assert.Equal(t, "Europe", res.Region)
	assert.Equal(t, StrategySameRegion, res.Strategy)
	assert.Zero(t, reg.count("collection"))
}

func TestResolveByID(t *testing.T) {
	reg := mnhnRegistry()
	r := NewResolver(reg, nil, nil)

	res, err := r.Resolve(context.Background(), Query{
		InstitutionID:   "https://registry.gbif.org/institution/" + keyNoumea,
		InstitutionCode: "MNHN",
		CollectionCode:  "X",
	})
	require.NoError(t, err)
	assert.Equal(t, "Oceania", res.Region)
	assert.Equal(t, StrategyInstitutionID, res.Strategy)
	assert.Zero(t, reg.count("code"), "id match must short-circuit the code lookup")
}

func TestResolveFallsThroughUnknownID(t *testing.T) {
	reg := newFakeRegistry()
	reg.add(Institution{Key: keyParis, Code: "MNHN", Region: "Europe"})
	r := NewResolver(reg, nil, nil)

	res, err := r.Resolve(context.Background(), Query{InstitutionID: keyUnknown, InstitutionCode: "MNHN"})
	require.NoError(t, err)
	assert.Equal(t, "Europe", res.Region)
	assert.Equal(t, StrategySingleMatch, res.Strategy)
}

func TestResolveFallbackURLs(t *testing.T) {
	reg := newFakeRegistry()
	geo := fakeGeo{"data.nhm.ac.uk": "GB", "www.mnhn.fr": "FR"}
	r := NewResolver(reg, geo, fakeCountries{"GB": "Europe", "FR": "Europe"})

	res, err := r.Resolve(context.Background(), Query{
		InstitutionCode: "NOPE",
		FallbackURLs:    []string{"", "urn:catalog:NHM:1", "https://data.nhm.ac.uk/object/1", "https://www.mnhn.fr/x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Europe", res.Region)
	assert.Equal(t, StrategyHostLocation, res.Strategy)
}

func TestResolveFallbackOrder(t *testing.T) {
	geo := fakeGeo{"a.example.org": "BR", "b.example.org": "FR"}
	r := NewResolver(newFakeRegistry(), geo, fakeCountries{"BR": "South America", "FR": "Europe"})

	res, err := r.Resolve(context.Background(), Query{
		FallbackURLs: []string{"https://a.example.org/1", "https://b.example.org/2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "South America", res.Region)
}

func TestResolveNothing(t *testing.T) {
	r := NewResolver(newFakeRegistry(), fakeGeo{}, fakeCountries{})

	res, err := r.Resolve(context.Background(), Query{InstitutionCode: "NOPE", FallbackURLs: []string{"not a url"}})
	require.NoError(t, err)
	assert.False(t, res.OK())
}

func TestResolveRegistryErrorContinuesChain(t *testing.T) {
	reg := newFakeRegistry()
	reg.err = errors.New("registry down")
	r := NewResolver(reg, fakeGeo{"x.example.org": "FR"}, fakeCountries{"FR": "Europe"})

	res, err := r.Resolve(context.Background(), Query{
		InstitutionID:   keyParis,
		InstitutionCode: "MNHN",
		FallbackURLs:    []string{"https://x.example.org"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Europe", res.Region)
}

func TestResolveCachesNegativeEntries(t *testing.T) {
	reg := newFakeRegistry()
	r := NewResolver(reg, nil, nil)
	ctx := context.Background()

	for range 3 {
		_, err := r.Resolve(ctx, Query{InstitutionID: keyUnknown, InstitutionCode: "NOPE"})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, reg.count("id"))
	assert.Equal(t, 1, reg.count("code"))
	stats := r.CacheStats()
	assert.Equal(t, uint64(4), stats.Hits)
}

func TestResolveConcurrent(t *testing.T) {
	r := NewResolver(mnhnRegistry(), nil, nil)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), Query{InstitutionCode: "MNHN", CollectionCode: "X"})
			assert.NoError(t, err)
			assert.Equal(t, "Europe", res.Region)
		}()
	}
	wg.Wait()
}

func TestInstitutionKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{keyParis, keyParis, true},
		{strings.ToUpper(keyParis), keyParis, true},
		{"https://registry.gbif.org/institution/" + keyParis, keyParis, true},
		{"https://registry.gbif.org/institution/" + keyParis + "/", keyParis, true},
		{"MNHN", "", false},
		{"https://example.org/no-id", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := InstitutionKey(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
