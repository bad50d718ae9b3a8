package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/oschwald/geoip2-golang"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/August26/tlsprobe-go/internal/model"
)

// Enricher labels an address with a country. It never fails: any problem
// yields model.UnknownCountry.
type Enricher interface {
	Country(ctx context.Context, ip string) string
}

// ------------------------------------------------------------------------------------
// ip-api.com style HTTP lookup
// ------------------------------------------------------------------------------------

// ipAPIResponse matches the fields we care about from ip-api.com/json.
type ipAPIResponse struct {
	Status  string `json:"status"` // "success" or "fail"
	Country string `json:"country"`
	Message string `json:"message"`
}

// IPAPI queries a JSON geolocation endpoint. URL is a fmt template where
// %s is replaced by the address.
type IPAPI struct {
	Client  *http.Client
	URL     string
	Limiter *rate.Limiter // optional
	Logger  *slog.Logger
}

// NewIPAPI builds the HTTP enricher. timeout == 0 leaves requests
// unbounded; perMinute == 0 disables the limiter.
func NewIPAPI(urlTemplate string, timeout time.Duration, perMinute int, log *slog.Logger) *IPAPI {
	g := &IPAPI{
		Client: &http.Client{Timeout: timeout},
		URL:    urlTemplate,
		Logger: log,
	}
	if perMinute > 0 {
		g.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return g
}

func (g *IPAPI) Country(ctx context.Context, ip string) string {
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return model.UnknownCountry
		}
	}

	parsed, err := g.fetch(ctx, ip)
	if err != nil {
		g.Logger.Debug("geo lookup failed", "ip", ip, "err", err)
		return model.UnknownCountry
	}
	if parsed.Status != "success" || parsed.Country == "" {
		g.Logger.Debug("geo lookup rejected", "ip", ip, "status", parsed.Status, "message", parsed.Message)
		return model.UnknownCountry
	}
	return parsed.Country
}

func (g *IPAPI) fetch(ctx context.Context, ip string) (ipAPIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(g.URL, ip), nil)
	if err != nil {
		return ipAPIResponse{}, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return ipAPIResponse{}, err
	}
	defer resp.Body.Close()

	var parsed ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ipAPIResponse{}, fmt.Errorf("decode geo response: %w", err)
	}
	return parsed, nil
}

// ------------------------------------------------------------------------------------
// Offline MaxMind database
// ------------------------------------------------------------------------------------

// GeoIP2 resolves countries from a local GeoLite2/GeoIP2 country database.
type GeoIP2 struct {
	db   *geoip2.Reader
	lang string
}

func OpenGeoIP2(path, lang string) (*GeoIP2, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	return &GeoIP2{db: db, lang: lang}, nil
}

func (g *GeoIP2) Country(_ context.Context, ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return model.UnknownCountry
	}
	rec, err := g.db.Country(parsed)
	if err != nil || rec == nil {
		return model.UnknownCountry
	}
	if name := rec.Country.Names[g.lang]; name != "" {
		return name
	}
	if name := rec.Country.Names["en"]; name != "" {
		return name
	}
	if rec.Country.IsoCode != "" {
		return rec.Country.IsoCode
	}
	return model.UnknownCountry
}

func (g *GeoIP2) Close() error {
	return g.db.Close()
}

// ------------------------------------------------------------------------------------
// Per-run memoization
// ------------------------------------------------------------------------------------

// CachedEnricher remembers successful labels so an address probed on
// several ports is looked up once. Unknown labels are not cached.
type CachedEnricher struct {
	Inner Enricher
	cache *gocache.Cache
}

func NewCachedEnricher(inner Enricher, ttl time.Duration) *CachedEnricher {
	return &CachedEnricher{
		Inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedEnricher) Country(ctx context.Context, ip string) string {
	if v, ok := c.cache.Get(ip); ok {
		return v.(string)
	}
	label := c.Inner.Country(ctx, ip)
	if label != model.UnknownCountry {
		c.cache.SetDefault(ip, label)
	}
	return label
}
