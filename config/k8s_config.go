package config

type K8sConfig struct {
	Order            int
	Enabled          bool   // Must be explicitly enabled to read definitions from a ConfigMap
	Kubeconfig       string // Path to kubeconfig file (empty = in-cluster auth)
	DefaultNamespace string `json:"namespace"`
	ConfigMap        string `json:"configMap"` // each data key is a `<name>.def.json` file
	CacheTTLSeconds  int    // ConfigMap cache TTL (0 = no caching)
}
