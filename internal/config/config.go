package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Configuration struct {
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Ledger   LedgerConfig   `json:"ledger"`
	Issuer   IssuerConfig   `json:"issuer"`
	Audit    AuditConfig    `json:"audit"`
	Database DatabaseConfig `json:"database"`
	Demo     DemoConfig     `json:"demo"`
}

type ServerConfig struct {
	Port         string        `json:"port"`
	Environment  string        `json:"environment"`
	PublicURL    string        `json:"public_url"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

// StorageConfig describes the document storage backends. Each backend is
// optional; with none configured the deterministic fallback still serves
// intake so the upload flow never blocks.
type StorageConfig struct {
	PinningEndpoint string        `json:"pinning_endpoint"`
	PinningJWT      string        `json:"pinning_jwt"`
	S3Bucket        string        `json:"s3_bucket"`
	S3Region        string        `json:"s3_region"`
	GatewayURL      string        `json:"gateway_url"`
	RequestTimeout  time.Duration `json:"request_timeout"`
}

type LedgerConfig struct {
	RPCEndpoint     string        `json:"rpc_endpoint"`
	PrivateKey      string        `json:"private_key"`
	ContractAddress string        `json:"contract_address"`
	Network         string        `json:"network"`
	ChainID         int64         `json:"chain_id"`
	ExplorerURL     string        `json:"explorer_url"`
	RequestTimeout  time.Duration `json:"request_timeout"`
}

type IssuerConfig struct {
	DID        string `json:"did"`
	Name       string `json:"name"`
	SigningKey string `json:"signing_key"`
}

type AuditConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

type DatabaseConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            string `json:"port"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	SSLMode         string `json:"ssl_mode"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	MaxOpenConns    int    `json:"max_open_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime"`
}

type DemoConfig struct {
	SeedOnBoot bool `json:"seed_on_boot"`
}

var (
	config     *Configuration
	configOnce sync.Once
	configLock sync.RWMutex
)

func LoadConfig(filePath string) (*Configuration, error) {
	var err error

	configOnce.Do(func() {
		var file *os.File
		file, err = os.Open(filePath)
		if err != nil {
			err = fmt.Errorf("failed to open config file: %w", err)
			return
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		config = &Configuration{}
		err = decoder.Decode(config)
		if err != nil {
			err = fmt.Errorf("failed to decode config file: %w", err)
			return
		}

		applyDefaults(config)
		applyEnvironment(config)
	})

	return config, err
}

func GetConfig() *Configuration {
	configLock.RLock()
	defer configLock.RUnlock()
	return config
}

// InitializeDefaultConfig builds the configuration from defaults and
// environment variables without a config file.
func InitializeDefaultConfig() *Configuration {
	configLock.Lock()
	defer configLock.Unlock()

	config = &Configuration{}
	applyDefaults(config)
	applyEnvironment(config)
	return config
}

func applyDefaults(cfg *Configuration) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8000"
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:8000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Storage.GatewayURL == "" {
		cfg.Storage.GatewayURL = "https://ipfs.io/ipfs/"
	}
	if cfg.Storage.RequestTimeout == 0 {
		cfg.Storage.RequestTimeout = 30 * time.Second
	}
	if cfg.Ledger.RequestTimeout == 0 {
		cfg.Ledger.RequestTimeout = 20 * time.Second
	}
	if cfg.Ledger.Network == "" {
		if cfg.Server.Environment == "production" {
			cfg.Ledger.Network = "base"
			cfg.Ledger.ChainID = 8453
			cfg.Ledger.ExplorerURL = "https://basescan.org"
		} else {
			cfg.Ledger.Network = "baseSepolia"
			cfg.Ledger.ChainID = 84532
			cfg.Ledger.ExplorerURL = "https://sepolia.basescan.org"
		}
	}
	if cfg.Ledger.ContractAddress == "" {
		cfg.Ledger.ContractAddress = "0x0000000000000000000000000000000000000000"
	}
	if cfg.Issuer.DID == "" {
		cfg.Issuer.DID = "did:ethr:baseSepolia:0x742d35c67d391d7f1e43cc2c87bb977b66c9b007"
	}
	if cfg.Issuer.Name == "" {
		cfg.Issuer.Name = "SwasthWrap Medical Records Platform"
	}
	if cfg.Audit.Topic == "" {
		cfg.Audit.Topic = "medical-record-intake"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.Username == "" {
		cfg.Database.Username = "postgres"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "healthvault"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 100
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}
}

// applyEnvironment overlays credentials and endpoints from the environment.
// Absence of any of these degrades the corresponding component to its
// simulated fallback rather than failing startup.
func applyEnvironment(cfg *Configuration) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.Environment = v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := os.Getenv("PINNING_ENDPOINT"); v != "" {
		cfg.Storage.PinningEndpoint = v
	}
	if v := os.Getenv("PINNING_JWT"); v != "" {
		cfg.Storage.PinningJWT = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Storage.S3Region = v
	}
	if v := os.Getenv("LEDGER_RPC_ENDPOINT"); v != "" {
		cfg.Ledger.RPCEndpoint = v
	}
	if v := os.Getenv("LEDGER_PRIVATE_KEY"); v != "" {
		cfg.Ledger.PrivateKey = v
	}
	if v := os.Getenv("CONTRACT_ADDRESS"); v != "" {
		cfg.Ledger.ContractAddress = v
	}
	if v := os.Getenv("ISSUER_DID"); v != "" {
		cfg.Issuer.DID = v
	}
	if v := os.Getenv("ISSUER_SIGNING_KEY"); v != "" {
		cfg.Issuer.SigningKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Audit.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
		cfg.Database.Enabled = true
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DEMO_SEED"); v == "true" || v == "1" {
		cfg.Demo.SeedOnBoot = true
	}
}

func LogConfig(logger *zap.Logger) {
	configLock.RLock()
	defer configLock.RUnlock()

	logger.Info("Application configuration",
		zap.String("port", config.Server.Port),
		zap.String("environment", config.Server.Environment),
		zap.String("public_url", config.Server.PublicURL),
		zap.Bool("pinning_configured", config.Storage.PinningEndpoint != ""),
		zap.Bool("s3_configured", config.Storage.S3Bucket != ""),
		zap.Bool("ledger_configured", config.Ledger.RPCEndpoint != ""),
		zap.String("ledger_network", config.Ledger.Network),
		zap.String("contract_address", config.Ledger.ContractAddress),
		zap.String("issuer_did", config.Issuer.DID),
		zap.Bool("credential_signing", config.Issuer.SigningKey != ""),
		zap.Bool("audit_configured", len(config.Audit.Brokers) > 0),
		zap.Bool("database_enabled", config.Database.Enabled),
	)
}
