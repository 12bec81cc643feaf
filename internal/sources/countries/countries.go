// Package countries resolves ISO 3166 alpha-2 country codes to names and
// regions through REST Countries, falling back to the CLDR tables bundled
// with golang.org/x/text when the service is unreachable.
package countries

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/logging"
)

// DefaultBaseURL is the public REST Countries v3.1 API.
const DefaultBaseURL = "https://restcountries.com/v3.1"

// Country is what the resolver knows about a code.
type Country struct {
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
	Region string `json:"region" yaml:"region"`
}

type countryResponse struct {
	CCA2 string `json:"cca2"`
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Region string `json:"region"`
}

// continents are the UN M.49 continental groupings in lookup order.
var continents = []language.Region{
	language.MustParseRegion("002"), // Africa
	language.MustParseRegion("019"), // Americas
	language.MustParseRegion("142"), // Asia
	language.MustParseRegion("150"), // Europe
	language.MustParseRegion("009"), // Oceania
	language.MustParseRegion("010"), // Antarctica
}

// Resolver implements enricher.CountryNamer and region.Countries.
type Resolver struct {
	client  *transport.Client
	baseURL string
	cache   *gocache.Cache
	offline bool
}

// New creates a resolver. With offline set it never calls the service.
func New(baseURL string, offline bool, opts ...transport.Option) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{
		client:  transport.New("rest-countries", opts...),
		baseURL: baseURL,
		cache:   gocache.New(gocache.NoExpiration, 0),
		offline: offline,
	}
}

// CountryName implements enricher.CountryNamer.
func (r *Resolver) CountryName(ctx context.Context, code string) (string, bool, error) {
	c, found, err := r.Lookup(ctx, code)
	return c.Name, found && c.Name != "", err
}

// RegionForCountry implements region.Countries.
func (r *Resolver) RegionForCountry(ctx context.Context, code string) (string, bool, error) {
	c, found, err := r.Lookup(ctx, code)
	return c.Region, found && c.Region != "", err
}

// Lookup resolves a code. Answers, including "unknown code", are cached
// for the life of the resolver.
func (r *Resolver) Lookup(ctx context.Context, code string) (Country, bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if v, ok := r.cache.Get(code); ok {
		c, _ := v.(*Country)
		if c == nil {
			return Country{}, false, nil
		}
		return *c, true, nil
	}

	var (
		c     Country
		found bool
	)
	if r.offline {
		c, found = Offline(code)
	} else {
		var err error
		c, found, err = r.fetch(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return Country{}, false, ctx.Err()
			}
			logging.FromContext(ctx).Debug().Err(err).Str("country", code).Msg("REST Countries unavailable, using CLDR tables")
			// Offline answers are not cached so the service is retried.
			c, found = Offline(code)
			return c, found, nil
		}
	}

	if found {
		r.cache.Set(code, &c, gocache.NoExpiration)
	} else {
		r.cache.Set(code, (*Country)(nil), gocache.NoExpiration)
	}
	return c, found, nil
}

func (r *Resolver) fetch(ctx context.Context, code string) (Country, bool, error) {
	params := url.Values{}
	params.Set("fields", "name,region,cca2")

	var raw json.RawMessage
	found, err := r.client.GetJSON(ctx, transport.BuildURL(r.baseURL, "alpha/"+url.PathEscape(code), params), &raw)
	if err != nil || !found {
		return Country{}, false, err
	}

	// The API answers with an object when fields are filtered and an
	// array otherwise.
	var resp countryResponse
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []countryResponse
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return Country{}, false, err
		}
		resp = list[0]
	} else if err := json.Unmarshal(raw, &resp); err != nil {
		return Country{}, false, err
	}
	if resp.Name.Common == "" {
		return Country{}, false, nil
	}
	return Country{Code: code, Name: resp.Name.Common, Region: NormalizeRegion(resp.Region)}, true, nil
}

// Offline resolves a code from the CLDR tables.
func Offline(code string) (Country, bool) {
	reg, err := language.ParseRegion(code)
	if err != nil || !reg.IsCountry() {
		return Country{}, false
	}
	c := Country{Code: reg.String(), Name: display.English.Regions().Name(reg)}
	for _, continent := range continents {
		if continent.Contains(reg) {
			c.Region = NormalizeRegion(display.English.Regions().Name(continent))
			break
		}
	}
	return c, c.Name != ""
}

// NormalizeRegion title-cases region labels so that sources agree, e.g.
// "EUROPE" and "europe" both become "Europe". The CLDR "Antarctica" and
// REST Countries "Antarctic" are folded together.
func NormalizeRegion(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = cases.Title(language.English).String(strings.ToLower(s))
	if s == "Antarctica" {
		return "Antarctic"
	}
	return s
}
