// Package geo maps client IP addresses to coarse locations. Lookups never fail
// from the caller's point of view: every problem yields an empty Location.
package geo

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Resolver maps an IP address to a location
type Resolver interface {
	Resolve(ip string) domain.Location
}

// Config holds GeoIP database locations
type Config struct {
	CityDB    string `yaml:"city_db" split_words:"true"`
	CountryDB string `yaml:"country_db" split_words:"true"`
}

// Enabled reports whether any database is configured
func (c Config) Enabled() bool {
	return c.CityDB != "" || c.CountryDB != ""
}

// lookuper is a single GeoIP database
type lookuper interface {
	lookup(ip net.IP) (domain.Location, error)
	Close() error
}

// MaxMind resolves through a city database first and a country database second
type MaxMind struct {
	city    lookuper
	country lookuper
	logger  zerolog.Logger
}

// Open opens the configured databases. At least one path must be set.
func Open(cfg Config, logger zerolog.Logger) (*MaxMind, error) {
	if !cfg.Enabled() {
		return nil, errors.New("no GeoIP database configured")
	}

	m := &MaxMind{logger: logger.With().Str("component", "geo").Logger()}

	if cfg.CityDB != "" {
		r, err := geoip2.Open(cfg.CityDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open city database: %w", err)
		}
		m.city = cityDB{r}
	}

	if cfg.CountryDB != "" {
		r, err := geoip2.Open(cfg.CountryDB)
		if err != nil {
			if m.city != nil {
				_ = m.city.Close()
			}
			return nil, fmt.Errorf("failed to open country database: %w", err)
		}
		m.country = countryDB{r}
	}

	return m, nil
}

// Resolve returns the location for ip or an empty Location
func (m *MaxMind) Resolve(ip string) domain.Location {
	addr := parsePublicIP(ip)
	if addr == nil {
		return domain.Location{}
	}

	if m.city != nil {
		loc, err := m.city.lookup(addr)
		if err != nil {
			m.logger.Debug().Err(err).Str("ip", ip).Msg("city lookup failed")
		} else if loc.Country != "" {
			return loc
		}
	}

	if m.country != nil {
		loc, err := m.country.lookup(addr)
		if err != nil {
			m.logger.Debug().Err(err).Str("ip", ip).Msg("country lookup failed")
			return domain.Location{}
		}
		return loc
	}

	return domain.Location{}
}

// Close releases both database readers
func (m *MaxMind) Close() error {
	var errs []error
	if m.city != nil {
		errs = append(errs, m.city.Close())
	}
	if m.country != nil {
		errs = append(errs, m.country.Close())
	}
	return errors.Join(errs...)
}

// parsePublicIP returns nil for anything that cannot have a public location
func parsePublicIP(ip string) net.IP {
	ip = strings.TrimSpace(ip)
	if ip == "" || strings.EqualFold(ip, "localhost") {
		return nil
	}

	addr := net.ParseIP(ip)
	if addr == nil {
		return nil
	}
	if addr.IsLoopback() || addr.IsUnspecified() || addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return nil
	}
	return addr
}

type cityDB struct {
	r *geoip2.Reader
}

func (d cityDB) lookup(ip net.IP) (domain.Location, error) {
	rec, err := d.r.City(ip)
	if err != nil {
		return domain.Location{}, err
	}
	return cityLocation(rec), nil
}

// cityLocation takes the region from the most specific subdivision
func cityLocation(rec *geoip2.City) domain.Location {
	loc := domain.Location{
		Country:     rec.Country.Names["en"],
		CountryCode: rec.Country.IsoCode,
		City:        rec.City.Names["en"],
	}
	if n := len(rec.Subdivisions); n > 0 {
		loc.Region = rec.Subdivisions[n-1].Names["en"]
	}
	return loc
}

func (d cityDB) Close() error {
	return d.r.Close()
}

type countryDB struct {
	r *geoip2.Reader
}

func (d countryDB) lookup(ip net.IP) (domain.Location, error) {
	rec, err := d.r.Country(ip)
	if err != nil {
		return domain.Location{}, err
	}
	return domain.Location{
		Country:     rec.Country.Names["en"],
		CountryCode: rec.Country.IsoCode,
	}, nil
}

func (d countryDB) Close() error {
	return d.r.Close()
}

// Nop resolves every address to an empty location
type Nop struct{}

// Resolve always returns an empty location
func (Nop) Resolve(string) domain.Location {
	return domain.Location{}
}

var (
	_ Resolver = (*MaxMind)(nil)
	_ Resolver = Nop{}
)
