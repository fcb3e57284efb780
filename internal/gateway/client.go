package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/siteconnect/internal/domain"
	"github.com/dropDatabas3/siteconnect/internal/metrics"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
)

// Defaults de las llamadas salientes.
const (
	DefaultMethod      = http.MethodPost
	DefaultTimeout     = 10 * time.Second
	DefaultRedirection = 0

	maxResponseBody = 10 << 20
)

// Options son los defaults del cliente; cada Args puede pisarlos.
type Options struct {
	Timeout     time.Duration
	Redirection int
	// InsecureSkipVerify desactiva la verificación TLS por defecto.
	InsecureSkipVerify bool
}

// Args describe una llamada saliente.
type Args struct {
	URL string
	// SiteID va en el payload; 0 usa el site id guardado.
	SiteID  int64
	Method  string
	Timeout time.Duration
	// Redirection es la cantidad máxima de redirects a seguir; nil usa el default.
	Redirection *int
	// TLSVerify nil usa el default del cliente.
	TLSVerify *bool
	Headers   http.Header
	Body      []byte
}

// Response es la respuesta cruda de la llamada.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client realiza llamadas salientes firmadas. No reintenta: la política de
// reintentos es de quien llama.
type Client struct {
	creds Credentials
	opts  Options

	secure   http.RoundTripper
	insecure http.RoundTripper
}

// NewClient crea el cliente.
func NewClient(creds Credentials, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Redirection < 0 {
		opts.Redirection = DefaultRedirection
	}
	base := http.DefaultTransport.(*http.Transport)
	insecure := base.Clone()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 opt-in por configuración
	return &Client{
		creds:    creds,
		opts:     opts,
		secure:   base.Clone(),
		insecure: insecure,
	}
}

// RemoteRequest firma y envía la llamada.
//
// Falla con domain.ErrMissingToken si no hay access token, y con
// domain.ErrRemoteTransport si la llamada HTTP no obtuvo respuesta.
// Una respuesta 4xx/5xx no es error: se devuelve tal cual.
func (c *Client) RemoteRequest(ctx context.Context, args Args) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(args.Method))
	if method == "" {
		method = DefaultMethod
	}
	log := logger.From(ctx).With(logger.Component("gateway"), logger.Method(method), logger.URL(args.URL))

	token, ok, err := c.creds.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: read access token: %w", err)
	}
	if !ok {
		metrics.RecordRemoteRequest(method, 0, "missing_token")
		return nil, domain.ErrMissingToken
	}

	siteID := args.SiteID
	if siteID == 0 {
		if siteID, _, err = c.creds.SiteID(ctx); err != nil {
			return nil, fmt.Errorf("gateway: read site id: %w", err)
		}
	}

	signed, err := SignToken(siteID, token)
	if err != nil {
		return nil, fmt.Errorf("gateway: sign: %w", err)
	}

	timeout := args.Timeout
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if args.Body != nil {
		body = bytes.NewReader(args.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, args.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteTransport, err)
	}
	for k, vs := range args.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", AuthScheme+" "+signed)

	start := time.Now()
	resp, err := c.httpClient(args).Do(req)
	if err != nil {
		metrics.RecordRemoteRequest(method, 0, "transport_error")
		// el error de net/http incluye la URL pero nunca el header
		log.Warn("remote request failed", logger.Err(err), logger.DurationMs(time.Since(start)))
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		metrics.RecordRemoteRequest(method, 0, "transport_error")
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrRemoteTransport, err)
	}
	metrics.RecordRemoteRequest(method, resp.StatusCode, "")
	log.Debug("remote request done",
		logger.Status(resp.StatusCode),
		logger.SiteID(siteID),
		logger.DurationMs(time.Since(start)),
	)
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) httpClient(args Args) *http.Client {
	verify := !c.opts.InsecureSkipVerify
	if args.TLSVerify != nil {
		verify = *args.TLSVerify
	}
	rt := c.secure
	if !verify {
		rt = c.insecure
	}

	maxRedirects := c.opts.Redirection
	if args.Redirection != nil {
		maxRedirects = *args.Redirection
	}
	return &http.Client{
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				// devolvemos la última respuesta (3xx) sin seguirla
				return http.ErrUseLastResponse
			}
			// el Authorization no viaja a otro host
			if req.URL.Host != via[0].URL.Host {
				req.Header.Del("Authorization")
			}
			return nil
		},
	}
}

// IsTransport indica si err es una falla de transporte saliente.
func IsTransport(err error) bool { return errors.Is(err, domain.ErrRemoteTransport) }
