package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP        HTTP        `json:"http"`
	Engine      Engine      `json:"engine"`
	WalletKit   WalletKit   `json:"walletkit"`
	Persistence Persistence `json:"persistence"`
	NATS        NATS        `json:"nats"`
	JWT         JWT         `json:"jwt"`
}

type JWT struct {
	Secret string `json:"secret"`
}

type EngineKind string

const (
	// EngineKindGoja runs the bridge script in-process.
	EngineKindGoja EngineKind = "goja"
	// EngineKindWebView waits for a WebView to attach over /ws/engine.
	EngineKindWebView EngineKind = "webview"
)

type Engine struct {
	Kind EngineKind `json:"kind"`
	// Script is the bridge bundle to load. The built-in bridge is used when empty.
	Script string `json:"script"`
}

type Manifest struct {
	Name         string `json:"name"`
	AppName      string `json:"app_name" yaml:"app_name"`
	ImageURL     string `json:"image_url" yaml:"image_url"`
	AboutURL     string `json:"about_url" yaml:"about_url"`
	UniversalURL string `json:"universal_url" yaml:"universal_url"`
	BridgeURL    string `json:"bridge_url" yaml:"bridge_url"`
}

type WalletKit struct {
	Network            string   `json:"network"`
	APIURL             string   `json:"api_url" yaml:"api_url"`
	TonAPIKey          string   `json:"tonapi_key" yaml:"tonapi_key"`
	PersistentStorage  bool     `json:"persistent_storage" yaml:"persistent_storage"`
	DisableNetworkSend bool     `json:"disable_network_send" yaml:"disable_network_send"`
	AppName            string   `json:"app_name" yaml:"app_name"`
	AppVersion         string   `json:"app_version" yaml:"app_version"`
	MaxProtocolVersion uint64   `json:"max_protocol_version" yaml:"max_protocol_version"`
	Manifest           Manifest `json:"manifest"`
}

type StorageDriver string

const (
	StorageDriverMemory     StorageDriver = "memory"
	StorageDriverDatabase   StorageDriver = "database"
	StorageDriverFilesystem StorageDriver = "filesystem"
	StorageDriverS3         StorageDriver = "s3"
)

type S3 struct {
	Region   string `json:"region"`
	Bucket   string `json:"bucket"`
	Endpoint string `json:"endpoint"`
	Prefix   string `json:"prefix"`
}

type Storage struct {
	Driver    StorageDriver `json:"driver"`
	Directory string        `json:"directory"`
	S3        S3            `json:"s3"`
}

type Persistence struct {
	Storage  Storage  `json:"storage"`
	Database Database `json:"database"`
}

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type Database struct {
	Driver          DatabaseDriver `json:"driver"`
	Database        string         `json:"database"`
	Username        string         `json:"username"`
	Password        string         `json:"password"`
	Host            string         `json:"host"`
	Port            uint16         `json:"port"`
	ExtraParameters string         `json:"extra_parameters" yaml:"extra_parameters"`
}

type NATS struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	// EventsPrefix is the subject prefix events are published under.
	EventsPrefix string `json:"events_prefix" yaml:"events_prefix"`
	// RPCPrefix is the subject prefix bridge calls are served on.
	RPCPrefix string `json:"rpc_prefix" yaml:"rpc_prefix"`
}

type HTTPListener struct {
	IPV4Host string `json:"ipv4_host" yaml:"ipv4_host"`
	IPV6Host string `json:"ipv6_host" yaml:"ipv6_host"`
	Port     uint16 `json:"port"`
}

type Tracing struct {
	Enabled      bool   `json:"enabled"`
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
}

type PProf struct {
	Enabled bool `json:"enabled"`
}

type Metrics struct {
	HTTPListener `yaml:",inline"`
	Enabled      bool `json:"enabled"`
}

type HTTP struct {
	HTTPListener   `yaml:",inline"`
	Tracing        Tracing  `json:"tracing"`
	PProf          PProf    `json:"pprof"`
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
	Metrics        Metrics  `json:"metrics"`
	CORSHosts      []string `json:"cors_hosts" yaml:"cors_hosts"`
}

//nolint:golint,gochecknoglobals
var (
	ConfigFileKey                         = "config"
	HTTPIPV4HostKey                       = "http.ipv4_host"
	HTTPIPV6HostKey                       = "http.ipv6_host"
	HTTPPortKey                           = "http.port"
	HTTPTracingEnabledKey                 = "http.tracing.enabled"
	HTTPTracingOTLPEndKey                 = "http.tracing.otlp_endpoint"
	HTTPPProfEnabledKey                   = "http.pprof.enabled"
	HTTPTrustedProxiesKey                 = "http.trusted_proxies"
	HTTPMetricsEnabledKey                 = "http.metrics.enabled"
	HTTPMetricsIPV4HostKey                = "http.metrics.ipv4_host"
	HTTPMetricsIPV6HostKey                = "http.metrics.ipv6_host"
	HTTPMetricsPortKey                    = "http.metrics.port"
	HTTPCORSHostsKey                      = "http.cors_hosts"
	EngineKindKey                         = "engine.kind"
	EngineScriptKey                       = "engine.script"
	WalletKitNetworkKey                   = "walletkit.network"
	WalletKitAPIURLKey                    = "walletkit.api_url"
	WalletKitTonAPIKeyKey                 = "walletkit.tonapi_key"
	WalletKitPersistentStorageKey         = "walletkit.persistent_storage"
	WalletKitDisableNetworkSendKey        = "walletkit.disable_network_send"
	WalletKitAppNameKey                   = "walletkit.app_name"
	WalletKitAppVersionKey                = "walletkit.app_version"
	WalletKitMaxProtocolVersionKey        = "walletkit.max_protocol_version"
	PersistenceStorageDriverKey           = "persistence.storage.driver"
	PersistenceStorageDirectoryKey        = "persistence.storage.directory"
	PersistenceStorageS3RegionKey         = "persistence.storage.s3.region"
	PersistenceStorageS3BucketKey         = "persistence.storage.s3.bucket"
	PersistenceStorageS3EndpointKey       = "persistence.storage.s3.endpoint"
	PersistenceStorageS3PrefixKey         = "persistence.storage.s3.prefix"
	PersistenceDatabaseDriverKey          = "persistence.database.driver"
	PersistenceDatabaseDatabaseKey        = "persistence.database.database"
	PersistenceDatabaseUsernameKey        = "persistence.database.username"
	PersistenceDatabasePasswordKey        = "persistence.database.password"
	PersistenceDatabaseHostKey            = "persistence.database.host"
	PersistenceDatabasePortKey            = "persistence.database.port"
	PersistenceDatabaseExtraParametersKey = "persistence.database.extra_parameters"
	NATSEnabledKey                        = "nats.enabled"
	NATSURLKey                            = "nats.url"
	NATSEventsPrefixKey                   = "nats.events_prefix"
	NATSRPCPrefixKey                      = "nats.rpc_prefix"
	JWTSecretKey                          = "jwt.secret"
)

const (
	DefaultConfigPath                  = "config.yaml"
	DefaultHTTPIPV4Host                = "0.0.0.0"
	DefaultHTTPIPV6Host                = "::"
	DefaultHTTPPort                    = 8080
	DefaultHTTPMetricsIPV4Host         = "127.0.0.1"
	DefaultHTTPMetricsIPV6Host         = "::1"
	DefaultHTTPMetricsPort             = 8081
	DefaultEngineKind                  = EngineKindGoja
	DefaultWalletKitNetwork            = "-239"
	DefaultWalletKitAppName            = "walletkit-bridge"
	DefaultWalletKitMaxProtocolVersion = 2
	DefaultPersistenceStorageDriver    = StorageDriverMemory
	DefaultPersistenceStorageDirectory = "storage/"
	DefaultPersistenceDatabaseDriver   = DatabaseDriverSQLite
	DefaultPersistenceDatabaseDatabase = "walletkit.db"
	DefaultNATSURL                     = "nats://127.0.0.1:4222"
	DefaultNATSEventsPrefix            = "walletkit.events"
	DefaultNATSRPCPrefix               = "walletkit.rpc"
)

func RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(ConfigFileKey, "c", DefaultConfigPath, "Config file path")
	cmd.Flags().String(HTTPIPV4HostKey, DefaultHTTPIPV4Host, "HTTP server IPv4 host")
	cmd.Flags().String(HTTPIPV6HostKey, DefaultHTTPIPV6Host, "HTTP server IPv6 host")
	cmd.Flags().Uint16(HTTPPortKey, DefaultHTTPPort, "HTTP server port")
	cmd.Flags().Bool(HTTPTracingEnabledKey, false, "Enable Open Telemetry tracing")
	cmd.Flags().String(HTTPTracingOTLPEndKey, "", "Open Telemetry endpoint")
	cmd.Flags().Bool(HTTPPProfEnabledKey, false, "Enable pprof")
	cmd.Flags().StringSlice(HTTPTrustedProxiesKey, []string{}, "Comma-separated list of trusted proxies")
	cmd.Flags().Bool(HTTPMetricsEnabledKey, false, "Enable metrics server")
	cmd.Flags().String(HTTPMetricsIPV4HostKey, DefaultHTTPMetricsIPV4Host, "Metrics server IPv4 host")
	cmd.Flags().String(HTTPMetricsIPV6HostKey, DefaultHTTPMetricsIPV6Host, "Metrics server IPv6 host")
	cmd.Flags().Uint16(HTTPMetricsPortKey, DefaultHTTPMetricsPort, "Metrics server port")
	cmd.Flags().StringSlice(HTTPCORSHostsKey, []string{}, "Comma-separated list of CORS hosts")
	cmd.Flags().String(EngineKindKey, string(DefaultEngineKind), "JavaScript engine (goja or webview)")
	cmd.Flags().String(EngineScriptKey, "", "Bridge script path, the built-in bridge is used when empty")
	cmd.Flags().String(WalletKitNetworkKey, DefaultWalletKitNetwork, "TON network (-239 mainnet, -3 testnet)")
	cmd.Flags().String(WalletKitAPIURLKey, "", "TON API base URL")
	cmd.Flags().String(WalletKitTonAPIKeyKey, "", "TON API key")
	cmd.Flags().Bool(WalletKitPersistentStorageKey, false, "Let WalletKit persist its state through the storage driver")
	cmd.Flags().Bool(WalletKitDisableNetworkSendKey, false, "Sign transactions without broadcasting them")
	cmd.Flags().String(WalletKitAppNameKey, DefaultWalletKitAppName, "App name reported to dApps")
	cmd.Flags().String(WalletKitAppVersionKey, "", "App version reported to dApps")
	cmd.Flags().Uint64(WalletKitMaxProtocolVersionKey, DefaultWalletKitMaxProtocolVersion, "Maximum TON Connect protocol version")
	cmd.Flags().String(PersistenceStorageDriverKey, string(DefaultPersistenceStorageDriver), "Storage driver (memory, database, filesystem or s3)")
	cmd.Flags().String(PersistenceStorageDirectoryKey, DefaultPersistenceStorageDirectory, "Storage directory for the filesystem driver")
	cmd.Flags().String(PersistenceStorageS3RegionKey, "", "S3 region")
	cmd.Flags().String(PersistenceStorageS3BucketKey, "", "S3 bucket")
	cmd.Flags().String(PersistenceStorageS3EndpointKey, "", "S3 endpoint")
	cmd.Flags().String(PersistenceStorageS3PrefixKey, "", "S3 key prefix")
	cmd.Flags().String(PersistenceDatabaseDriverKey, string(DefaultPersistenceDatabaseDriver), "Database driver")
	cmd.Flags().String(PersistenceDatabaseDatabaseKey, DefaultPersistenceDatabaseDatabase, "Database path")
	cmd.Flags().String(PersistenceDatabaseUsernameKey, "", "Database username")
	cmd.Flags().String(PersistenceDatabasePasswordKey, "", "Database password")
	cmd.Flags().String(PersistenceDatabaseHostKey, "", "Database host")
	cmd.Flags().Uint16(PersistenceDatabasePortKey, 0, "Database port")
	cmd.Flags().String(PersistenceDatabaseExtraParametersKey, "", "Database extra parameters")
	cmd.Flags().Bool(NATSEnabledKey, false, "Enable NATS")
	cmd.Flags().String(NATSURLKey, DefaultNATSURL, "NATS server URL")
	cmd.Flags().String(NATSEventsPrefixKey, DefaultNATSEventsPrefix, "NATS subject prefix for events")
	cmd.Flags().String(NATSRPCPrefixKey, DefaultNATSRPCPrefix, "NATS subject prefix for bridge calls")
	cmd.Flags().String(JWTSecretKey, "", "JWT signing secret")
}

var (
	ErrJWTSecretRequired       = errors.New("JWT secret is required")
	ErrOTLPEndpointRequired    = errors.New("OTLP endpoint is required when tracing is enabled")
	ErrInvalidEngineKind       = errors.New("Engine kind must be goja or webview")
	ErrNetworkRequired         = errors.New("WalletKit network is required")
	ErrInvalidStorageDriver    = errors.New("Storage driver must be memory, database, filesystem or s3")
	ErrStorageDirRequired      = errors.New("Storage directory is required for the filesystem driver")
	ErrS3BucketRequired        = errors.New("S3 bucket is required for the s3 driver")
	ErrS3RegionRequired        = errors.New("S3 region is required for the s3 driver")
	ErrDBHostRequired          = errors.New("Database host is required")
	ErrDBDatabaseRequired      = errors.New("Database name is required")
	ErrDatabaseDriverRequired  = errors.New("Database driver is required")
	ErrInvalidDatabaseDriver   = errors.New("Database driver must be sqlite, mysql or postgres")
	ErrNATSURLRequired         = errors.New("NATS URL is required when NATS is enabled")
	ErrNATSEventsPrefixInvalid = errors.New("NATS events prefix must not be empty or end with a dot")
)

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrJWTSecretRequired
	}
	if c.HTTP.Tracing.Enabled && c.HTTP.Tracing.OTLPEndpoint == "" {
		return ErrOTLPEndpointRequired
	}
	switch c.Engine.Kind {
	case EngineKindGoja, EngineKindWebView:
	default:
		return ErrInvalidEngineKind
	}
	if c.WalletKit.Network == "" {
		return ErrNetworkRequired
	}

	switch c.Persistence.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverDatabase:
		if err := c.Persistence.Database.validate(); err != nil {
			return err
		}
	case StorageDriverFilesystem:
		if c.Persistence.Storage.Directory == "" {
			return ErrStorageDirRequired
		}
	case StorageDriverS3:
		if c.Persistence.Storage.S3.Bucket == "" {
			return ErrS3BucketRequired
		}
		if c.Persistence.Storage.S3.Region == "" {
			return ErrS3RegionRequired
		}
	default:
		return ErrInvalidStorageDriver
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return ErrNATSURLRequired
		}
		if c.NATS.EventsPrefix == "" || strings.HasSuffix(c.NATS.EventsPrefix, ".") {
			return ErrNATSEventsPrefixInvalid
		}
	}

	return nil
}

func (d Database) validate() error {
	switch d.Driver {
	case "":
		return ErrDatabaseDriverRequired
	case DatabaseDriverSQLite, DatabaseDriverMySQL, DatabaseDriverPostgres:
	default:
		return ErrInvalidDatabaseDriver
	}
	if d.Driver != DatabaseDriverSQLite && d.Host == "" {
		return ErrDBHostRequired
	}
	if d.Database == "" {
		return ErrDBDatabaseRequired
	}
	return nil
}

func LoadConfig(cmd *cobra.Command) (*Config, error) {
	var config Config

	// Load flags from envs
	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if ctx.Err() != nil {
			return
		}
		optName := strings.ReplaceAll(strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_"), ".", "__")
		if val, ok := os.LookupEnv(optName); !f.Changed && ok {
			if err := f.Value.Set(val); err != nil {
				cancel(err)
			}
			f.Changed = true
		}
	})
	if ctx.Err() != nil {
		return &config, fmt.Errorf("failed to load env: %w", context.Cause(ctx))
	}

	configPath, err := cmd.Flags().GetString(ConfigFileKey)
	if err != nil {
		return &config, fmt.Errorf("failed to get config path: %w", err)
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return &config, fmt.Errorf("failed to read config: %w", err)
		} else if err == nil {
			if err := yaml.Unmarshal(data, &config); err != nil {
				return &config, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	err = overrideFlags(&config, cmd)
	if err != nil {
		return &config, fmt.Errorf("failed to override flags: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.IPV4Host == "" {
		c.HTTP.IPV4Host = DefaultHTTPIPV4Host
	}
	if c.HTTP.IPV6Host == "" {
		c.HTTP.IPV6Host = DefaultHTTPIPV6Host
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.Metrics.IPV4Host == "" {
		c.HTTP.Metrics.IPV4Host = DefaultHTTPMetricsIPV4Host
	}
	if c.HTTP.Metrics.IPV6Host == "" {
		c.HTTP.Metrics.IPV6Host = DefaultHTTPMetricsIPV6Host
	}
	if c.HTTP.Metrics.Port == 0 {
		c.HTTP.Metrics.Port = DefaultHTTPMetricsPort
	}
	if c.Engine.Kind == "" {
		c.Engine.Kind = DefaultEngineKind
	}
	if c.WalletKit.Network == "" {
		c.WalletKit.Network = DefaultWalletKitNetwork
	}
	if c.WalletKit.AppName == "" {
		c.WalletKit.AppName = DefaultWalletKitAppName
	}
	if c.WalletKit.MaxProtocolVersion == 0 {
		c.WalletKit.MaxProtocolVersion = DefaultWalletKitMaxProtocolVersion
	}
	if c.Persistence.Storage.Driver == "" {
		c.Persistence.Storage.Driver = DefaultPersistenceStorageDriver
	}
	if c.Persistence.Storage.Directory == "" {
		c.Persistence.Storage.Directory = DefaultPersistenceStorageDirectory
	}
	if c.Persistence.Database.Driver == "" {
		c.Persistence.Database.Driver = DefaultPersistenceDatabaseDriver
	}
	if c.Persistence.Database.Database == "" {
		c.Persistence.Database.Database = DefaultPersistenceDatabaseDatabase
	}
	if c.NATS.URL == "" {
		c.NATS.URL = DefaultNATSURL
	}
	if c.NATS.EventsPrefix == "" {
		c.NATS.EventsPrefix = DefaultNATSEventsPrefix
	}
	if c.NATS.RPCPrefix == "" {
		c.NATS.RPCPrefix = DefaultNATSRPCPrefix
	}
}

func overrideFlags(config *Config, cmd *cobra.Command) error {
	var err error
	if cmd.Flags().Changed(HTTPIPV4HostKey) {
		config.HTTP.IPV4Host, err = cmd.Flags().GetString(HTTPIPV4HostKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP IPv4 host: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPIPV6HostKey) {
		config.HTTP.IPV6Host, err = cmd.Flags().GetString(HTTPIPV6HostKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP IPv6 host: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPPortKey) {
		config.HTTP.Port, err = cmd.Flags().GetUint16(HTTPPortKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP port: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPPProfEnabledKey) {
		config.HTTP.PProf.Enabled, err = cmd.Flags().GetBool(HTTPPProfEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get pprof enabled: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPTrustedProxiesKey) {
		config.HTTP.TrustedProxies, err = cmd.Flags().GetStringSlice(HTTPTrustedProxiesKey)
		if err != nil {
			return fmt.Errorf("failed to get trusted proxies: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPMetricsEnabledKey) {
		config.HTTP.Metrics.Enabled, err = cmd.Flags().GetBool(HTTPMetricsEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics enabled: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPMetricsIPV4HostKey) {
		config.HTTP.Metrics.IPV4Host, err = cmd.Flags().GetString(HTTPMetricsIPV4HostKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics IPv4 host: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPMetricsIPV6HostKey) {
		config.HTTP.Metrics.IPV6Host, err = cmd.Flags().GetString(HTTPMetricsIPV6HostKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics IPv6 host: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPMetricsPortKey) {
		config.HTTP.Metrics.Port, err = cmd.Flags().GetUint16(HTTPMetricsPortKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics port: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPTracingEnabledKey) {
		config.HTTP.Tracing.Enabled, err = cmd.Flags().GetBool(HTTPTracingEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get tracing enabled: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPTracingOTLPEndKey) {
		config.HTTP.Tracing.OTLPEndpoint, err = cmd.Flags().GetString(HTTPTracingOTLPEndKey)
		if err != nil {
			return fmt.Errorf("failed to get tracing OTLP endpoint: %w", err)
		}
	}

	if cmd.Flags().Changed(HTTPCORSHostsKey) {
		config.HTTP.CORSHosts, err = cmd.Flags().GetStringSlice(HTTPCORSHostsKey)
		if err != nil {
			return fmt.Errorf("failed to get CORS hosts: %w", err)
		}
	}

	if cmd.Flags().Changed(EngineKindKey) {
		kind, err := cmd.Flags().GetString(EngineKindKey)
		if err != nil {
			return fmt.Errorf("failed to get engine kind: %w", err)
		}
		config.Engine.Kind = EngineKind(strings.ToLower(kind))
	}

	if cmd.Flags().Changed(EngineScriptKey) {
		config.Engine.Script, err = cmd.Flags().GetString(EngineScriptKey)
		if err != nil {
			return fmt.Errorf("failed to get engine script: %w", err)
		}
	}

	if cmd.Flags().Changed(WalletKitNetworkKey) {
		config.WalletKit.Network, err = cmd.Flags().GetString(WalletKitNetworkKey)
		if err != nil {
			return fmt.Errorf("failed to get WalletKit network: %w", err)
		}
	}

	if cmd.Flags().Changed(WalletKitAPIURLKey) {
		config.WalletKit.APIURL, err = cmd.Flags().GetString(WalletKitAPIURLKey)
		if err != nil {
			return fmt.Errorf("failed to get WalletKit API URL: %w", err)
		}
	}

	if cmd.Flags().Changed(WalletKitTonAPIKeyKey) {
		config.WalletKit.TonAPIKey, err = cmd.Flags().GetString(WalletKitTonAPIKeyKey)
		if err != nil {
			return fmt.Errorf("failed to get TON API key: %w", err)
		}
	}

	if cmd.Flags().Changed(WalletKitPersistentStorageKey) {
		config.WalletKit.PersistentStorage, err = cmd.Flags().GetBool(WalletKitPersistentStorageKey)
		if err != nil {
			return fmt.Errorf("failed to get persistent storage: %w", err)
		}
	}

	if cmd.Flags().Changed(WalletKitDisableNetworkSendKey) {
		config.WalletKit.DisableNetworkSend, err = cmd.Flags().GetBool(WalletKitDisableNetworkSendKey)
		if err != nil {
			return fmt.Errorf("failed to get disable network send: %w", err)
		}
	}

	if cmd.Flags().Changed(WalletKitAppNameKey) {
		config.WalletKit.AppName, err = cmd.Flags().GetString(WalletKitAppNameKey)
		if err != nil {
			return fmt.Errorf("failed to get app name: %w", err)
		}
	}

	if cmd.Flags().Changed(WalletKitAppVersionKey) {
		config.WalletKit.AppVersion, err = cmd.Flags().GetString(WalletKitAppVersionKey)
		if err != nil {
			return fmt.Errorf("failed to get app version: %w", err)
		}
	}

	if cmd.Flags().Changed(WalletKitMaxProtocolVersionKey) {
		config.WalletKit.MaxProtocolVersion, err = cmd.Flags().GetUint64(WalletKitMaxProtocolVersionKey)
		if err != nil {
			return fmt.Errorf("failed to get max protocol version: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceStorageDriverKey) {
		drvr, err := cmd.Flags().GetString(PersistenceStorageDriverKey)
		if err != nil {
			return fmt.Errorf("failed to get storage driver: %w", err)
		}
		config.Persistence.Storage.Driver = StorageDriver(strings.ToLower(drvr))
	}

	if cmd.Flags().Changed(PersistenceStorageDirectoryKey) {
		config.Persistence.Storage.Directory, err = cmd.Flags().GetString(PersistenceStorageDirectoryKey)
		if err != nil {
			return fmt.Errorf("failed to get storage directory: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceStorageS3RegionKey) {
		config.Persistence.Storage.S3.Region, err = cmd.Flags().GetString(PersistenceStorageS3RegionKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 region: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceStorageS3BucketKey) {
		config.Persistence.Storage.S3.Bucket, err = cmd.Flags().GetString(PersistenceStorageS3BucketKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 bucket: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceStorageS3EndpointKey) {
		config.Persistence.Storage.S3.Endpoint, err = cmd.Flags().GetString(PersistenceStorageS3EndpointKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 endpoint: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceStorageS3PrefixKey) {
		config.Persistence.Storage.S3.Prefix, err = cmd.Flags().GetString(PersistenceStorageS3PrefixKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 prefix: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabaseDriverKey) {
		drvr, err := cmd.Flags().GetString(PersistenceDatabaseDriverKey)
		if err != nil {
			return fmt.Errorf("failed to get database driver: %w", err)
		}
		config.Persistence.Database.Driver = DatabaseDriver(strings.ToLower(drvr))
	}

	if cmd.Flags().Changed(PersistenceDatabaseDatabaseKey) {
		config.Persistence.Database.Database, err = cmd.Flags().GetString(PersistenceDatabaseDatabaseKey)
		if err != nil {
			return fmt.Errorf("failed to get database name: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabaseUsernameKey) {
		config.Persistence.Database.Username, err = cmd.Flags().GetString(PersistenceDatabaseUsernameKey)
		if err != nil {
			return fmt.Errorf("failed to get database username: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabasePasswordKey) {
		config.Persistence.Database.Password, err = cmd.Flags().GetString(PersistenceDatabasePasswordKey)
		if err != nil {
			return fmt.Errorf("failed to get database password: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabaseHostKey) {
		config.Persistence.Database.Host, err = cmd.Flags().GetString(PersistenceDatabaseHostKey)
		if err != nil {
			return fmt.Errorf("failed to get database host: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabasePortKey) {
		config.Persistence.Database.Port, err = cmd.Flags().GetUint16(PersistenceDatabasePortKey)
		if err != nil {
			return fmt.Errorf("failed to get database port: %w", err)
		}
	}

	if cmd.Flags().Changed(PersistenceDatabaseExtraParametersKey) {
		config.Persistence.Database.ExtraParameters, err = cmd.Flags().GetString(PersistenceDatabaseExtraParametersKey)
		if err != nil {
			return fmt.Errorf("failed to get database extra parameters: %w", err)
		}
	}

	if cmd.Flags().Changed(NATSEnabledKey) {
		config.NATS.Enabled, err = cmd.Flags().GetBool(NATSEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS enabled: %w", err)
		}
	}

	if cmd.Flags().Changed(NATSURLKey) {
		config.NATS.URL, err = cmd.Flags().GetString(NATSURLKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS URL: %w", err)
		}
	}

	if cmd.Flags().Changed(NATSEventsPrefixKey) {
		config.NATS.EventsPrefix, err = cmd.Flags().GetString(NATSEventsPrefixKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS events prefix: %w", err)
		}
	}

	if cmd.Flags().Changed(NATSRPCPrefixKey) {
		config.NATS.RPCPrefix, err = cmd.Flags().GetString(NATSRPCPrefixKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS RPC prefix: %w", err)
		}
	}

	if cmd.Flags().Changed(JWTSecretKey) {
		config.JWT.Secret, err = cmd.Flags().GetString(JWTSecretKey)
		if err != nil {
			return fmt.Errorf("failed to get JWT secret: %w", err)
		}
	}

	return nil
}
