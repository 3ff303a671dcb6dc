package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Default configuration values
const (
	DefaultPort      = 3000
	DefaultServerURL = "ws://localhost:3000/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// Server holds the relay configuration.
type Server struct {
	Host     string `envconfig:"HOST"`
	Port     int    `envconfig:"PORT" default:"3000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int `envconfig:"SEND_BUFFER" default:"256"`

	// ReadLimit caps the size of a single inbound frame in bytes.
	ReadLimit int64 `envconfig:"READ_LIMIT" default:"65536"`

	// AllowedOrigins restricts websocket upgrades by Origin header.
	// Empty allows every origin.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// ServerOptions carries CLI flag overrides. Zero values mean "not set".
type ServerOptions struct {
	Host     string
	Port     int
	LogLevel string
}

// LoadServer reads configuration with the following priority:
// 1. CLI flags (passed via ServerOptions) - highest priority
// 2. Environment variables (and a .env file, if present)
// 3. Defaults - lowest priority
func LoadServer(opts ServerOptions) (*Server, error) {
	_ = godotenv.Load()

	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.SendBuffer <= 0 {
		return nil, fmt.Errorf("invalid send buffer %d", cfg.SendBuffer)
	}
	if cfg.ReadLimit <= 0 {
		return nil, fmt.Errorf("invalid read limit %d", cfg.ReadLimit)
	}

	return &cfg, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Peer holds the configuration of the headless peer client.
type Peer struct {
	ServerURL  string `envconfig:"TANDEM_SERVER" default:"ws://localhost:3000/ws"`
	STUNServer string `envconfig:"STUN_SERVER" default:"stun:stun.l.google.com:19302"`
	TURNServer string `envconfig:"TURN_SERVER"`
	TURNUser   string `envconfig:"TURN_USERNAME"`
	TURNPass   string `envconfig:"TURN_PASSWORD"`
	ForceRelay bool   `envconfig:"FORCE_RELAY"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"error"`
}

// PeerOptions carries CLI flag overrides for the peer client.
type PeerOptions struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	LogLevel   string
}

// LoadPeer reads the peer configuration: flags > environment > defaults.
func LoadPeer(opts PeerOptions) (*Peer, error) {
	_ = godotenv.Load()

	var cfg Peer
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	override(&cfg.ServerURL, opts.ServerURL)
	override(&cfg.STUNServer, opts.STUNServer)
	override(&cfg.TURNServer, opts.TURNServer)
	override(&cfg.TURNUser, opts.TURNUser)
	override(&cfg.TURNPass, opts.TURNPass)
	override(&cfg.LogLevel, opts.LogLevel)
	if opts.ForceRelay {
		cfg.ForceRelay = true
	}

	if cfg.ForceRelay && cfg.TURNServer == "" {
		return nil, fmt.Errorf("cannot force relay mode without a TURN server")
	}

	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be ws or wss", cfg.ServerURL)
	}

	return &cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// GetSTUNServers returns STUN server URLs as strings
func (p *Peer) GetSTUNServers() []string {
	if p.STUNServer == "" {
		return nil
	}
	return []string{p.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (p *Peer) GetTURNServers() []string {
	if p.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(p.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (p *Peer) GetTURNCredentials() (string, string) {
	return p.TURNUser, p.TURNPass
}

// StatsURL derives the relay's /stats endpoint from the websocket URL.
func (p *Peer) StatsURL() string {
	u, err := url.Parse(p.ServerURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/stats"
	u.RawQuery = ""
	return u.String()
}
