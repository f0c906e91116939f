package types

// AppConfig contains general application settings. Kept from the teacher's
// pkg/types/config.go.
type AppConfig struct {
	Name     string `yaml:"name" json:"name" mapstructure:"name"`
	Version  string `yaml:"version" json:"version" mapstructure:"version"`
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
}

// AuthConfig contains OAuth settings. Kept from the teacher's
// pkg/types/config.go.
type AuthConfig struct {
	ClientID     string   `yaml:"client_id" json:"client_id" mapstructure:"client_id"`
	ClientSecret string   `yaml:"client_secret" json:"client_secret" mapstructure:"client_secret"`
	RedirectURI  string   `yaml:"redirect_uri" json:"redirect_uri" mapstructure:"redirect_uri"`
	Scopes       []string `yaml:"scopes" json:"scopes" mapstructure:"scopes"`
}

// NetworkConfig contains network settings. Kept from the teacher's
// pkg/types/config.go.
type NetworkConfig struct {
	ProxyURL       string `yaml:"proxy_url" json:"proxy_url" mapstructure:"proxy_url"`
	Timeout        int    `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	MaxRetries     int    `yaml:"max_retries" json:"max_retries" mapstructure:"max_retries"`
	BandwidthLimit int    `yaml:"bandwidth_limit" json:"bandwidth_limit" mapstructure:"bandwidth_limit"`
}

// FilterSpec is the on-disk (YAML) representation of a single FileFilter;
// internal/config resolves a list of these into []types.FileFilter via
// internal/filter's constructors, since FileFilter implementations are not
// directly serializable.
type FilterSpec struct {
	Kind       string   `yaml:"kind" json:"kind" mapstructure:"kind"` // extensions|exclude_extensions|size_range|glob|regex|hidden|prefix
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty" mapstructure:"extensions"`
	MinSize    *uint64  `yaml:"min_size,omitempty" json:"min_size,omitempty" mapstructure:"min_size"`
	MaxSize    *uint64  `yaml:"max_size,omitempty" json:"max_size,omitempty" mapstructure:"max_size"`
	Pattern    string   `yaml:"pattern,omitempty" json:"pattern,omitempty" mapstructure:"pattern"`
	Prefix     string   `yaml:"prefix,omitempty" json:"prefix,omitempty" mapstructure:"prefix"`
}

// FolderSpec is the on-disk representation of one SyncDirectory.
type FolderSpec struct {
	Local     string `yaml:"local" json:"local" mapstructure:"local"`
	Remote    string `yaml:"remote" json:"remote" mapstructure:"remote"`
	SyncMode  string `yaml:"sync_mode" json:"sync_mode" mapstructure:"sync_mode"`
	Recursive bool   `yaml:"recursive" json:"recursive" mapstructure:"recursive"`
	Enabled   bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// Config is the top-level on-disk application configuration, resolved into
// a SyncOptions by internal/config.
type Config struct {
	App               AppConfig     `yaml:"app" json:"app" mapstructure:"app"`
	Auth              AuthConfig    `yaml:"auth" json:"auth" mapstructure:"auth"`
	Network           NetworkConfig `yaml:"network" json:"network" mapstructure:"network"`
	AppFolder         string        `yaml:"app_folder_name" json:"app_folder_name" mapstructure:"app_folder_name"`
	Folders           []FolderSpec  `yaml:"folders" json:"folders" mapstructure:"folders"`
	Filters           []FilterSpec  `yaml:"file_filters" json:"file_filters" mapstructure:"file_filters"`
	ConflictPolicy    string        `yaml:"conflict_policy" json:"conflict_policy" mapstructure:"conflict_policy"`
	ChecksumAlgorithm string        `yaml:"checksum_algorithm" json:"checksum_algorithm" mapstructure:"checksum_algorithm"`
	NetworkPolicy     string        `yaml:"network_policy" json:"network_policy" mapstructure:"network_policy"`
	EncryptionMode    string        `yaml:"encryption_mode" json:"encryption_mode" mapstructure:"encryption_mode"`
}
