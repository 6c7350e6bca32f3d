// Package imagefetch downloads product images with a Chrome TLS fingerprint
// and reports their format and dimensions.
package imagefetch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	_ "golang.org/x/image/webp"

	"github.com/use-agent/shopwalk/models"
)

// DefaultMaxBytes caps a single image body.
const DefaultMaxBytes = 10 << 20

// chromeH1Spec is a Chrome ClientHello with ALPN limited to http/1.1, since
// http.Transport cannot speak h2 over a utls connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// Options configure a Fetcher.
type Options struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	Proxy          string // http proxy URL; other schemes are ignored
	MaxBytes       int64

	// Transport replaces the utls transport. Tests use it.
	Transport http.RoundTripper
}

// Image is a fetched image.
type Image struct {
	URL         string
	ContentType string
	Format      string
	Width       int
	Height      int
	Data        []byte
}

// Size is the body length in bytes.
func (img *Image) Size() int { return len(img.Data) }

// Fetcher retrieves images. It is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
	acceptLng string
	maxBytes  int64
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	transport := opts.Transport
	if transport == nil {
		transport = newChromeTransport(opts.Proxy)
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		acceptLng: opts.AcceptLanguage,
		maxBytes:  maxBytes,
	}
}

func newChromeTransport(proxy string) *http.Transport {
	proxyURL := httpProxy(proxy)
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialTunnel(ctx, proxyURL, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("imagefetch: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	if proxyURL != nil {
		// https is tunnelled by DialTLSContext; the transport's own CONNECT
		// path would run a crypto/tls handshake instead.
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" {
				return nil, nil
			}
			return proxyURL, nil
		}
	}
	return transport
}

// httpProxy parses an http proxy URL. Anything else yields nil.
func httpProxy(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return nil
	}
	return u
}

// dialTunnel connects to addr, through an HTTP CONNECT tunnel when proxyURL
// is set.
func dialTunnel(ctx context.Context, proxyURL *url.URL, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if proxyURL == nil {
		return dialer.DialContext(ctx, network, addr)
	}

	proxyAddr := proxyURL.Host
	if proxyURL.Port() == "" {
		proxyAddr = net.JoinHostPort(proxyURL.Hostname(), "80")
	}
	conn, err := dialer.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("imagefetch: dial proxy: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if u := proxyURL.User; u != nil {
		pass, _ := u.Password()
		cred := base64.StdEncoding.EncodeToString([]byte(u.Username() + ":" + pass))
		req.Header.Set("Proxy-Authorization", "Basic "+cred)
	}
	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("imagefetch: proxy connect: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("imagefetch: proxy connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("imagefetch: proxy connect: %s", resp.Status)
	}
	return conn, nil
}

// Fetch downloads rawURL and decodes its header. Every failure is an
// IMAGE_FETCH_FAILED ScrapeError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fetchError("invalid image url "+rawURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.acceptLng != "" {
		req.Header.Set("Accept-Language", f.acceptLng)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetchError("image request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fetchError(fmt.Sprintf("HTTP %d for %s", resp.StatusCode, rawURL), nil)
	}

	// One byte over the cap tells a truncated body apart from an exact fit.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fetchError("read image body", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fetchError(fmt.Sprintf("image exceeds %d bytes", f.maxBytes), nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fetchError("unrecognised image data", err)
	}
	return &Image{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Data:        data,
	}, nil
}

// Resolve turns an image src as found in the page into an absolute URL.
// Protocol-relative sources take the base scheme.
func Resolve(base, src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", errors.New("imagefetch: empty image source")
	}
	if strings.HasPrefix(src, "data:") {
		return "", errors.New("imagefetch: inline data source")
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("imagefetch: parse %q: %w", src, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("imagefetch: parse base %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}

// Save writes img into dir and returns the file path. The name comes from
// the URL path with the decoded format as extension.
func Save(img *Image, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("imagefetch: create %s: %w", dir, err)
	}
	p := filepath.Join(dir, FileName(img))
	if err := os.WriteFile(p, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("imagefetch: write %s: %w", p, err)
	}
	return p, nil
}

// FileName derives a file name for img.
func FileName(img *Image) string {
	name := "image"
	if u, err := url.Parse(img.URL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = strings.TrimSuffix(base, path.Ext(base))
		}
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)

	ext := img.Format
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext == "" {
		ext = "img"
	}
	return name + "." + ext
}

func fetchError(msg string, err error) error {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	}
	return models.NewScrapeError(models.ErrCodeImageFetch, msg, err)
}
