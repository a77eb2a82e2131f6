package config

type Configuration struct {
	ApplicationConfigFileYmlPath string `env:"DEFCHECK_CONFIG_FILE_YML_PATH" envDefault:"defcheck.yml"`
}

// ApplicationConfiguration Must use full names for `sigs.k8s.io/yaml`
type ApplicationConfiguration struct {
	Server     Server
	Prometheus Prometheus
	Logging    Logging
	File       FileConfig
	Git        GitConfig
	K8s        K8sConfig
	Lint       LintConfig
	Tracing    Tracing
}

type Server struct {
	Port int
}

type Logging struct {
	Level   string
	Console bool
}

type FileConfig struct {
	Order    int
	Disabled bool
	Path     string
}

type LintConfig struct {
	SettingsFile string `json:"settingsFile"`
	Strict       bool
	Concurrency  int
}

type Tracing struct {
	Enabled         bool
	Endpoint        string
	SamplerFraction float64
}

type Prometheus struct {
	Path string
}
