package model

import "time"

// Config holds everything the probe pipeline needs for one run.
// Field names double as YAML keys for the optional config file.
type Config struct {
	InputFile    string `yaml:"input"`
	ResultFile   string `yaml:"result_file"`
	ProxyFile    string `yaml:"proxy_file"`
	ReportFile   string `yaml:"report_file"`   // optional extra report
	ReportFormat string `yaml:"report_format"` // json or csv

	Concurrency int      `yaml:"concurrency"` // batch size
	TimeoutMs   int      `yaml:"timeout_ms"`  // connect + handshake budget per probe
	ServerName  string   `yaml:"server_name"` // SNI sent to every target
	Via         string   `yaml:"via"`         // optional socks5:// upstream for probes
	Nameservers []string `yaml:"nameservers"` // host:port, empty = resolv.conf

	GeoURL           string `yaml:"geo_url"` // fmt template, %s = ip
	GeoMaxDelayMs    int    `yaml:"geo_max_delay_ms"`
	GeoTimeoutMs     int    `yaml:"geo_timeout_ms"` // 0 = no timeout
	GeoRatePerMinute int    `yaml:"geo_rate_per_minute"`
	GeoIPDB          string `yaml:"geoip_db"` // offline MaxMind country db
	GeoLang          string `yaml:"geo_lang"`

	Progress  bool   `yaml:"progress"`
	Verbose   bool   `yaml:"verbose"`
	LogFormat string `yaml:"log_format"` // json or text

	ConfigFile string `yaml:"-"`
}

// DefaultConfig returns the values the tool has always run with.
func DefaultConfig() Config {
	return Config{
		InputFile:     "domain.txt",
		ResultFile:    "result.txt",
		ProxyFile:     "proxy.txt",
		ReportFormat:  "json",
		Concurrency:   20,
		TimeoutMs:     3000,
		ServerName:    "speed.cloudflare.com",
		GeoURL:        "http://ip-api.com/json/%s?lang=zh-CN",
		GeoMaxDelayMs: 2000,
		GeoLang:       "zh-CN",
		LogFormat:     "json",
	}
}

func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c Config) GeoMaxDelay() time.Duration {
	return time.Duration(c.GeoMaxDelayMs) * time.Millisecond
}

func (c Config) GeoTimeout() time.Duration {
	return time.Duration(c.GeoTimeoutMs) * time.Millisecond
}
