package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
chain:
  node_url: "https://node.example/rpc"
  network_id: 1
  contract_address: "0x1111111111111111111111111111111111111111"
  private_key: "deadbeef"
reader:
  auction_data_page_size: 50
logging:
  level: "debug"
  format: "json"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesFileValues(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Chain.NodeURL != "https://node.example/rpc" {
		t.Errorf("node url = %q", cfg.Chain.NodeURL)
	}
	if cfg.Reader.AuctionDataPageSize != 50 {
		t.Errorf("page size = %d, want 50", cfg.Reader.AuctionDataPageSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadDefaultsPageSize(t *testing.T) {
	path := writeConfig(t, `
chain:
  node_url: "https://node.example/rpc"
  network_id: 1
  contract_address: "0x1111111111111111111111111111111111111111"
  private_key: "deadbeef"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reader.AuctionDataPageSize != 100 {
		t.Errorf("page size = %d, want default 100", cfg.Reader.AuctionDataPageSize)
	}
}

func TestLoadEnvOverridesPrivateKey(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	t.Setenv("DRIVER_PRIVATE_KEY", "cafebabe")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chain.PrivateKey != "cafebabe" {
		t.Errorf("private key = %q, want env override", cfg.Chain.PrivateKey)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject an empty config")
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestFilterConfigParseDefaultsToAllowAll(t *testing.T) {
	var f FilterConfig
	flt, err := f.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !flt.Tokens.Allows(7) {
		t.Error("empty filter config should allow every token")
	}
}

func TestFilterConfigParseOnlyMode(t *testing.T) {
	f := FilterConfig{Raw: `{"tokens":{"mode":"only","members":[1,2]}}`}
	flt, err := f.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !flt.Tokens.Allows(1) || flt.Tokens.Allows(3) {
		t.Error("only-mode filter allowed the wrong token set")
	}
}
