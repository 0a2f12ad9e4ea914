// Пакет httpclient: HTTP-клиенты исходящих запросов Content Module
// (Content API, Keycloak token endpoint, JWKS).
// CM_CA_CERT_PATH добавляется к системному пулу доверия.
package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// DefaultTimeout: таймаут клиента, если он не задан.
const DefaultTimeout = 30 * time.Second

// ErrNoCertificates: в CA-файле нет ни одного PEM-сертификата.
var ErrNoCertificates = errors.New("в CA-файле нет PEM-сертификатов")

// Options: параметры HTTP-клиента.
type Options struct {
	// Timeout: таймаут одного запроса; <= 0: DefaultTimeout.
	Timeout time.Duration
	// CACertPath: дополнительный CA (пусто: только системный пул).
	CACertPath string
}

// New создаёт HTTP-клиент. С CACertPath транспорт получает отдельный
// пул доверия, без него используется http.DefaultTransport.
func New(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}
	if opts.CACertPath == "" {
		return client, nil
	}

	pool, err := certPool(opts.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("CA-сертификат %s: %w", opts.CACertPath, err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	client.Transport = transport
	return client, nil
}

// certPool: системный пул плюс сертификаты из файла.
func certPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, ErrNoCertificates
	}
	return pool, nil
}
