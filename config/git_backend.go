package config

type GitConfig struct {
	Order    int
	Disabled bool

	Uri            string
	KnownHostsFile string `json:"knownHostsFile"`
	PrivateKey     string `json:"privateKey"`

	Basedir                string `json:"basedir"`
	DisableBaseDirCleaning bool   `json:"disableBaseDirCleaning"`

	// Subdir holds the definition files within the repository, e.g. `resources/definitions`
	Subdir            string `json:"subdir"`
	DefaultBranchName string `json:"defaultBranchName"`

	CloneOnStart bool `json:"clone-on-start"`
	ForcePull    bool `json:"force-pull"`
	ShowProgress bool `json:"showProgress"`

	RefreshRateMillis int64 `json:"refreshRate"`
}
