// Package region resolves the coarse geographic region (continent) of the
// institution holding a specimen.
//
// Resolution walks a fixed fallback chain:
//
//  1. a syntactically valid institution id is fetched directly;
//  2. otherwise all institutions sharing the institution code are fetched
//     and narrowed by common region, then by collection code;
//  3. otherwise up to three URL-shaped identifiers are geolocated by host.
//
// Registry answers are memoized by id and by code for the life of the
// Resolver, negative answers included.
package region

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	"github.com/agentstation/specimap/pkg/constants"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/specimen"
)

// Institution is a registry entry for a specimen-holding institution.
type Institution struct {
	Key             string   `json:"key" yaml:"key"`
	Code            string   `json:"code" yaml:"code"`
	Name            string   `json:"name,omitempty" yaml:"name,omitempty"`
	CountryCode     string   `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	Region          string   `json:"region,omitempty" yaml:"region,omitempty"`
	CollectionCodes []string `json:"collection_codes,omitempty" yaml:"collection_codes,omitempty"`
}

// Registry is the institution/collection registry.
type Registry interface {
	// InstitutionByID returns the institution with the given registry key.
	InstitutionByID(ctx context.Context, id string) (Institution, bool, error)
	// InstitutionsByCode returns every institution registered under code.
	InstitutionsByCode(ctx context.Context, code string) ([]Institution, error)
	// HasCollection reports whether the institution holds a collection
	// registered under collectionCode.
	HasCollection(ctx context.Context, institutionKey, collectionCode string) (bool, error)
}

// Geolocator maps a host name to an ISO 3166 alpha-2 country code.
type Geolocator interface {
	CountryForHost(ctx context.Context, host string) (string, bool, error)
}

// Countries maps an ISO 3166 alpha-2 country code to its region.
type Countries interface {
	RegionForCountry(ctx context.Context, code string) (string, bool, error)
}

// Status says whether a region was found.
type Status int

// Resolution states.
const (
	Unresolved Status = iota
	Resolved
)

// String implements fmt.Stringer.
func (s Status) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

// Strategy names the step of the chain that produced a region.
type Strategy string

// Resolution strategies.
const (
	StrategyNone           Strategy = ""
	StrategyInstitutionID  Strategy = "institution-id"
	StrategySingleMatch    Strategy = "institution-code"
	StrategySameRegion     Strategy = "same-region"
	StrategyCollectionCode Strategy = "collection-code"
	StrategyHostLocation   Strategy = "host-location"
)

// Query carries the identifiers a record offers for resolution.
type Query struct {
	InstitutionID   string
	InstitutionCode string
	CollectionCode  string
	// FallbackURLs are tried in order. Blank and non-URL values are skipped.
	FallbackURLs []string
}

// Resolution is the result of Resolve.
type Resolution struct {
	Status   Status
	Region   string
	Strategy Strategy
}

// OK reports whether a region was resolved.
func (r Resolution) OK() bool { return r.Status == Resolved }

func resolved(region string, s Strategy) Resolution {
	return Resolution{Status: Resolved, Region: region, Strategy: s}
}

// Resolver resolves institution regions. It is safe for concurrent use.
type Resolver struct {
	registry  Registry
	geo       Geolocator
	countries Countries
	cache     *memo
}

// NewResolver creates a resolver. geo and countries may be nil, in which
// case the steps that need them are skipped.
func NewResolver(registry Registry, geo Geolocator, countries Countries) *Resolver {
	return &Resolver{
		registry:  registry,
		geo:       geo,
		countries: countries,
		cache:     newMemo(),
	}
}

// CacheStats reports registry cache usage.
func (r *Resolver) CacheStats() CacheStats {
	return r.cache.stats()
}

// Resolve runs the fallback chain. A nil error with Status Unresolved means
// every step came up empty. Errors are returned only for context
// cancellation; source failures are logged and the chain moves on.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Resolution, error) {
	logger := logging.FromContext(ctx)

	if id, ok := InstitutionKey(q.InstitutionID); ok && r.registry != nil {
		inst, found, err := r.institutionByID(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return Resolution{}, ctx.Err()
			}
			logger.Warn().Err(err).Str("institution_id", id).Msg("Institution lookup by id failed")
		case found:
			if region := r.regionOf(ctx, inst); region != "" {
				return resolved(region, StrategyInstitutionID), nil
			}
		}
	}

	if code := strings.TrimSpace(q.InstitutionCode); code != "" && r.registry != nil {
		res, err := r.resolveByCode(ctx, code, strings.TrimSpace(q.CollectionCode))
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, ctx.Err()
			}
			logger.Warn().Err(err).Str("institution_code", code).Msg("Institution lookup by code failed")
		} else if res.OK() {
			return res, nil
		}
	}

	if r.geo != nil {
		for _, raw := range fallbackCandidates(q.FallbackURLs) {
			region, err := r.regionForURL(ctx, raw)
			if err != nil {
				if ctx.Err() != nil {
					return Resolution{}, ctx.Err()
				}
				logger.Debug().Err(err).Str("url", raw).Msg("Host geolocation failed")
				continue
			}
			if region != "" {
				return resolved(region, StrategyHostLocation), nil
			}
		}
	}

	logger.Info().
		Str("institution_id", q.InstitutionID).
		Str("institution_code", q.InstitutionCode).
		Str("collection_code", q.CollectionCode).
		Int("fallback_urls", len(q.FallbackURLs)).
		Msg("Region unresolved")
	return Resolution{Status: Unresolved}, nil
}

// resolveByCode implements step 2. Same-region agreement is checked before
// collection-code narrowing.
func (r *Resolver) resolveByCode(ctx context.Context, code, collectionCode string) (Resolution, error) {
	candidates, err := r.institutionsByCode(ctx, code)
	if err != nil {
		return Resolution{}, err
	}

	switch len(candidates) {
	case 0:
		return Resolution{}, nil
	case 1:
		if region := r.regionOf(ctx, candidates[0]); region != "" {
			return resolved(region, StrategySingleMatch), nil
		}
		return Resolution{}, nil
	}

	regions := make([]string, len(candidates))
	for i, c := range candidates {
		regions[i] = r.regionOf(ctx, c)
	}
	if shared := commonRegion(regions); shared != "" {
		return resolved(shared, StrategySameRegion), nil
	}

	if collectionCode == "" {
		return Resolution{}, nil
	}
	var survivors []int
	for i, c := range candidates {
		ok, err := r.hasCollection(ctx, c, collectionCode)
		if err != nil {
			return Resolution{}, err
		}
		if ok {
			survivors = append(survivors, i)
		}
	}
	if len(survivors) == 1 && regions[survivors[0]] != "" {
		return resolved(regions[survivors[0]], StrategyCollectionCode), nil
	}
	return Resolution{}, nil
}

// commonRegion returns the region every entry shares, or "".
func commonRegion(regions []string) string {
	if len(regions) == 0 || regions[0] == "" {
		return ""
	}
	for _, reg := range regions[1:] {
		if !strings.EqualFold(reg, regions[0]) {
			return ""
		}
	}
	return regions[0]
}

// regionOf returns the institution's region, deriving it from its country
// when the registry did not carry one.
func (r *Resolver) regionOf(ctx context.Context, inst Institution) string {
	if inst.Region != "" {
		return inst.Region
	}
	if inst.CountryCode == "" {
		return ""
	}
	region, _ := r.regionForCountry(ctx, inst.CountryCode)
	return region
}

func (r *Resolver) regionForURL(ctx context.Context, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", nil
	}
	host := strings.ToLower(u.Hostname())

	key := "host:" + host
	if e, ok := r.cache.get(key); ok {
		if !e.found {
			return "", nil
		}
		return r.regionForCountry(ctx, e.value.(string))
	}
	country, found, err := r.geo.CountryForHost(ctx, host)
	if err != nil {
		return "", err
	}
	r.cache.put(key, country, found)
	if !found {
		return "", nil
	}
	return r.regionForCountry(ctx, country)
}

func (r *Resolver) regionForCountry(ctx context.Context, code string) (string, error) {
	if r.countries == nil {
		return "", nil
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	key := "country:" + code
	if e, ok := r.cache.get(key); ok {
		if !e.found {
			return "", nil
		}
		return e.value.(string), nil
	}
	region, found, err := r.countries.RegionForCountry(ctx, code)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("country", code).Msg("Country region lookup failed")
		return "", err
	}
	r.cache.put(key, region, found)
	return region, nil
}

func (r *Resolver) institutionByID(ctx context.Context, id string) (Institution, bool, error) {
	key := "id:" + id
	if e, ok := r.cache.get(key); ok {
		if !e.found {
			return Institution{}, false, nil
		}
		return e.value.(Institution), true, nil
	}
	inst, found, err := r.registry.InstitutionByID(ctx, id)
	if err != nil {
		return Institution{}, false, err
	}
	r.cache.put(key, inst, found)
	return inst, found, nil
}

func (r *Resolver) institutionsByCode(ctx context.Context, code string) ([]Institution, error) {
	key := "code:" + strings.ToUpper(code)
	if e, ok := r.cache.get(key); ok {
		if !e.found {
			return nil, nil
		}
		return e.value.([]Institution), nil
	}
	candidates, err := r.registry.InstitutionsByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.cache.put(key, candidates, len(candidates) > 0)
	for _, inst := range candidates {
		if inst.Key != "" {
			r.cache.put("id:"+inst.Key, inst, true)
		}
	}
	return candidates, nil
}

func (r *Resolver) hasCollection(ctx context.Context, inst Institution, collectionCode string) (bool, error) {
	for _, c := range inst.CollectionCodes {
		if strings.EqualFold(c, collectionCode) {
			return true, nil
		}
	}
	if inst.Key == "" {
		return false, nil
	}
	key := "collection:" + inst.Key + "/" + strings.ToUpper(collectionCode)
	if e, ok := r.cache.get(key); ok {
		return e.found, nil
	}
	ok, err := r.registry.HasCollection(ctx, inst.Key, collectionCode)
	if err != nil {
		return false, err
	}
	r.cache.put(key, nil, ok)
	return ok, nil
}

// trailingUUID matches a registry URL whose last path segment is a UUID.
var trailingUUID = regexp.MustCompile(`([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})/?$`)

// InstitutionKey extracts a registry key from a bare UUID or a URL ending
// in one.
func InstitutionKey(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id.String(), true
	}
	if !govalidator.IsURL(raw) {
		return "", false
	}
	m := trailingUUID.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	id, err := uuid.Parse(m[1])
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// fallbackCandidates keeps the first URL-shaped values, in order.
func fallbackCandidates(values []string) []string {
	out := make([]string, 0, constants.MaxFallbackIdentifiers)
	for _, v := range values {
		if len(out) == constants.MaxFallbackIdentifiers {
			break
		}
		v = strings.TrimSpace(v)
		if v == "" || !isHTTPURL(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func isHTTPURL(v string) bool {
	if !govalidator.IsURL(v) {
		return false
	}
	u, err := url.Parse(v)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

// QueryFor builds the resolution query a record offers. Fallbacks are the
// institution id, collection id and generic identifier, in that order.
func QueryFor(r *specimen.Record) Query {
	return Query{
		InstitutionID:   r.String(specimen.FieldInstitutionID),
		InstitutionCode: r.String(specimen.FieldInstitutionCode),
		CollectionCode:  r.String(specimen.FieldCollectionCode),
		FallbackURLs: []string{
			r.String(specimen.FieldInstitutionID),
			r.String(specimen.FieldCollectionID),
			r.String(specimen.FieldIdentifier),
		},
	}
}
