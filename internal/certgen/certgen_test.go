package certgen

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophBank/internal/client/api"
)

func TestGenerateCA(t *testing.T) {
	certPEM, keyPEM, err := GenerateCA("GophBank Dev CA")
	require.NoError(t, err)

	ca, key, err := ParseCA(certPEM, keyPEM)
	require.NoError(t, err)
	assert.True(t, ca.IsCA)
	assert.Equal(t, "GophBank Dev CA", ca.Subject.CommonName)
	assert.NotNil(t, key)
}

func TestParseCAErrors(t *testing.T) {
	certPEM, keyPEM, err := GenerateCA("ca")
	require.NoError(t, err)

	_, _, err = ParseCA([]byte("junk"), keyPEM)
	assert.ErrorContains(t, err, "invalid CA cert PEM")
	_, _, err = ParseCA(certPEM, []byte("junk"))
	assert.ErrorContains(t, err, "invalid CA key PEM")

	other := pem.EncodeToMemory(&pem.Block{Type: "DSA PRIVATE KEY", Bytes: []byte{1}})
	_, _, err = ParseCA(certPEM, other)
	assert.ErrorContains(t, err, "unsupported key type")
}

func TestLoadCACredentials(t *testing.T) {
	dir := t.TempDir()
	certPEM, keyPEM, err := GenerateCA("ca")
	require.NoError(t, err)
	certPath, keyPath := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))

	ca, _, err := LoadCACredentials(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, "ca", ca.Subject.CommonName)

	_, _, err = LoadCACredentials(filepath.Join(dir, "missing"), keyPath)
	assert.ErrorContains(t, err, "read ca cert")
}

func TestGenerateServerCertificate(t *testing.T) {
	caPEM, caKeyPEM, err := GenerateCA("ca")
	require.NoError(t, err)
	ca, caKey, err := ParseCA(caPEM, caKeyPEM)
	require.NoError(t, err)

	_, _, err = GenerateServerCertificate(nil, ca, caKey)
	assert.Error(t, err)

	certPEM, _, err := GenerateServerCertificate([]string{"localhost", "127.0.0.1"}, ca, caKey)
	require.NoError(t, err)
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}, cert.ExtKeyUsage)

	pool := x509.NewCertPool()
	pool.AddCert(ca)
	_, err = cert.Verify(x509.VerifyOptions{Roots: pool, DNSName: "localhost"})
	assert.NoError(t, err)
}

// The client trusts a server certificate issued here once given the CA file.
func TestClientTrustsIssuedCertificate(t *testing.T) {
	caPEM, caKeyPEM, err := GenerateCA("ca")
	require.NoError(t, err)
	ca, caKey, err := ParseCA(caPEM, caKeyPEM)
	require.NoError(t, err)
	certPEM, keyPEM, err := GenerateServerCertificate([]string{"127.0.0.1"}, ca, caKey)
	require.NoError(t, err)
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accounts":[]}`))
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}
	srv.StartTLS()
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(caFile, caPEM, 0o600))
	hc, err := api.NewHTTPClient(caFile, 5*time.Second)
	require.NoError(t, err)

	c := api.New(srv.URL, hc)
	c.SetToken("t")
	accounts, err := c.Accounts(t.Context(), api.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, accounts)

	untrusted := api.New(srv.URL, &http.Client{Timeout: 5 * time.Second})
	untrusted.SetToken("t")
	_, err = untrusted.Accounts(t.Context(), api.AccountFilter{})
	assert.Error(t, err, "a client without the CA must reject the server")
}
