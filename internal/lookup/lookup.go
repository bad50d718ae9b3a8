// Package lookup annotates a list of addresses with detailed location data
// and writes it as a spreadsheet-friendly CSV.
package lookup

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultAPI       = "https://api.live.bilibili.com/ip_service/v1/ip_service/get_ip_addr"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	defaultTimeout   = 10 * time.Second
	defaultInterval  = 500 * time.Millisecond
)

// utf8BOM lets Excel detect the encoding of Chinese text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Record is one row of the CSV.
type Record struct {
	Addr     string `json:"addr"`
	Country  string `json:"country"`
	Province string `json:"province"`
	City     string `json:"city"`
	ISP      string `json:"isp"`
}

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    Record `json:"data"`
}

// Client queries the location API one address at a time.
type Client struct {
	HTTP    *http.Client
	API     string
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

func NewClient(api string, interval time.Duration, log *slog.Logger) *Client {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Client{
		HTTP:    &http.Client{Timeout: defaultTimeout},
		API:     api,
		Limiter: rate.NewLimiter(rate.Every(interval), 1),
		Logger:  log,
	}
}

// Lookup returns the record for ip. The API's addr falls back to ip.
func (c *Client) Lookup(ctx context.Context, ip string) (Record, error) {
	u, err := url.Parse(c.API)
	if err != nil {
		return Record{}, fmt.Errorf("parse api url: %w", err)
	}
	q := u.Query()
	q.Set("ip", ip)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Record{}, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Record{}, err
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Record{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Code != 0 {
		msg := parsed.Message
		if msg == "" {
			msg = "unknown error"
		}
		return Record{}, fmt.Errorf("api code %d: %s", parsed.Code, msg)
	}

	rec := parsed.Data
	if rec.Addr == "" {
		rec.Addr = ip
	}
	return rec, nil
}

// LookupAll queries every ip in order, pacing requests with the limiter.
// Failed lookups are logged and left out.
func (c *Client) LookupAll(ctx context.Context, ips []string) []Record {
	out := make([]Record, 0, len(ips))
	for _, ip := range ips {
		if err := c.Limiter.Wait(ctx); err != nil {
			c.Logger.Warn("lookup stopped", "err", err)
			break
		}
		rec, err := c.Lookup(ctx, ip)
		if err != nil {
			c.Logger.Warn("lookup failed", "ip", ip, "err", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// ReadAddresses returns the non-empty trimmed lines of path.
func ReadAddresses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open address file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan address file: %w", err)
	}
	return out, nil
}

// SortByCountry groups records of the same country together.
func SortByCountry(recs []Record) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		return strings.Compare(a.Country, b.Country)
	})
}

// WriteCSV writes recs with a BOM and a header row.
func WriteCSV(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return err
	}
	return writeRows(f, recs)
}

func writeRows(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"addr", "country", "province", "city", "isp"}); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{r.Addr, r.Country, r.Province, r.City, r.ISP}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
