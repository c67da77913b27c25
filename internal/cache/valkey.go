package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValkeyProvider implements Provider backed by a Valkey/Redis-compatible
// server. Connections are dialed per operation; the engine's cache traffic
// is one lookup per submitted error, so pooling would buy nothing.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// ValkeyConfig holds connection parameters for the Valkey server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// NewValkeyProvider creates a Provider using the supplied configuration and
// pings the target to fail fast on bad credentials or connectivity.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	p := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	reply, err := p.do(ctx, "PING")
	if err != nil {
		return nil, err
	}
	if string(reply) != "PONG" {
		return nil, fmt.Errorf("unexpected PING response: %s", reply)
	}
	return p, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := p.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, ErrCacheMiss
	}
	return reply, nil
}

// Set stores bytes with the provided TTL.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	reply, err := p.do(ctx, "SET", args...)
	if err != nil {
		return err
	}
	if string(reply) != "OK" {
		return fmt.Errorf("unexpected SET response: %s", reply)
	}
	return nil
}

// Del removes a key from the cache.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, "DEL", key)
	return err
}

// Close closes the underlying client (no-op for the per-op dialing provider).
func (p *ValkeyProvider) Close() error { return nil }

// do performs a single command round-trip with retries on transient
// network failures.
func (p *ValkeyProvider) do(ctx context.Context, command string, args ...string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reply, err := p.roundTrip(ctx, command, args...)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		var netErr net.Error
		if !errors.As(err, &netErr) || attempt == p.cfg.MaxRetries-1 {
			return nil, err
		}
		time.Sleep(time.Duration(1<<attempt) * 25 * time.Millisecond)
	}
	return nil, lastErr
}

func (p *ValkeyProvider) roundTrip(ctx context.Context, command string, args ...string) ([]byte, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	if p.cfg.Password != "" {
		auth := []string{p.cfg.Password}
		if p.cfg.Username != "" {
			auth = []string{p.cfg.Username, p.cfg.Password}
		}
		if _, err := p.exchange(conn, reader, writer, "AUTH", auth...); err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	if p.cfg.DB > 0 {
		if _, err := p.exchange(conn, reader, writer, "SELECT", strconv.Itoa(p.cfg.DB)); err != nil {
			return nil, fmt.Errorf("select db: %w", err)
		}
	}

	return p.exchange(conn, reader, writer, command, args...)
}

// exchange writes one RESP command and reads one reply. Nil bulk strings
// come back as a nil slice.
func (p *ValkeyProvider) exchange(conn net.Conn, reader *bufio.Reader, writer *bufio.Writer, command string, args ...string) ([]byte, error) {
	if err := conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout)); err != nil {
		return nil, err
	}
	fmt.Fprintf(writer, "*%d\r\n", len(args)+1)
	for _, part := range append([]string{command}, args...) {
		fmt.Fprintf(writer, "$%d\r\n%s\r\n", len(part), part)
	}
	if err := writer.Flush(); err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout)); err != nil {
		return nil, err
	}
	return readReply(reader)
}

func readReply(reader *bufio.Reader) ([]byte, error) {
	prefix, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	line, err := readLine(reader)
	if err != nil {
		return nil, err
	}
	switch prefix {
	case '+', ':':
		return line, nil
	case '-':
		return nil, errors.New(string(line))
	case '$':
		size, err := strconv.Atoi(string(line))
		if err != nil {
			return nil, fmt.Errorf("bad bulk length %q", line)
		}
		if size < 0 {
			return nil, nil
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, err
		}
		return buf[:size], nil
	default:
		return nil, fmt.Errorf("unexpected RESP prefix %q", prefix)
	}
}

func readLine(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

func (p *ValkeyProvider) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	if !p.cfg.TLS {
		return dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	host, _, err := net.SplitHostPort(p.cfg.Addr)
	if err != nil {
		host = p.cfg.Addr
	}
	return tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr, &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: host,
	})
}
