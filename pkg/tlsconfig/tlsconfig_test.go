package tlsconfig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeSelfSigned writes a self-signed CA certificate and its key to dir.
// The same certificate serves as leaf and CA.
func writeSelfSigned(t *testing.T, dir string) Files {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "photoperiod-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	files := Files{
		Cert: filepath.Join(dir, "cert.pem"),
		Key:  filepath.Join(dir, "key.pem"),
		CA:   filepath.Join(dir, "ca.pem"),
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	for path, data := range map[string][]byte{files.Cert: certPEM, files.Key: keyPEM, files.CA: certPEM} {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return files
}

func TestFiles_ServerAndClient(t *testing.T) {
	files := writeSelfSigned(t, t.TempDir())

	srv, err := files.Server()
	if err != nil {
		t.Fatalf("Server() failed: %v", err)
	}
	if srv.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Errorf("expected client certs to be required")
	}
	if srv.ClientCAs == nil || len(srv.Certificates) != 1 {
		t.Errorf("expected one certificate and a client CA pool")
	}

	cli, err := files.Client()
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	if cli.RootCAs == nil || len(cli.Certificates) != 1 {
		t.Errorf("expected one certificate and a root CA pool")
	}
}

func TestFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	valid := writeSelfSigned(t, dir)

	notPEM := filepath.Join(dir, "empty.pem")
	if err := os.WriteFile(notPEM, []byte("nothing here"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		files Files
	}{
		{"missing CA", Files{Cert: valid.Cert, Key: valid.Key}},
		{"missing key file", Files{Cert: valid.Cert, Key: filepath.Join(dir, "nope.pem"), CA: valid.CA}},
		{"missing CA file", Files{Cert: valid.Cert, Key: valid.Key, CA: filepath.Join(dir, "nope.pem")}},
		{"CA without certificates", Files{Cert: valid.Cert, Key: valid.Key, CA: notPEM}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.files.Server(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFiles_Enabled(t *testing.T) {
	if (Files{}).Enabled() {
		t.Error("empty files should not be enabled")
	}
	if !(Files{Cert: "cert.pem"}).Enabled() {
		t.Error("files with a cert should be enabled")
	}
}
