// Package main writes a development CA and a server certificate signed by it
// under the "certs" directory. Point the server at server.crt/server.key and
// the client at ca.crt.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/GophBank/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma separated server hosts")
	flag.Parse()

	if err := generate(*dir, strings.Split(*hosts, ",")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// generate writes ca.crt, ca.key, server.crt and server.key into dir.
func generate(dir string, hosts []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	caPEM, caKeyPEM, err := certgen.GenerateCA("GophBank Dev CA")
	if err != nil {
		return err
	}
	if err := writePair(dir, "ca", caPEM, caKeyPEM); err != nil {
		return err
	}

	caCert, caKey, err := certgen.ParseCA(caPEM, caKeyPEM)
	if err != nil {
		return err
	}
	certPEM, keyPEM, err := certgen.GenerateServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return err
	}
	return writePair(dir, "server", certPEM, keyPEM)
}

func writePair(dir, name string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(filepath.Join(dir, name+".crt"), certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s cert: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".key"), keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s key: %w", name, err)
	}
	return nil
}
