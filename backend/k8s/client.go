package k8s

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GlintPay/defcheck/config"
	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

type Client struct {
	clientset kubernetes.Interface
	cache     *resourceCache
}

type resourceCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	value     *corev1.ConfigMap
	expiresAt time.Time
}

func NewClient(cfg config.K8sConfig) (*Client, error) {
	var restConfig *rest.Config
	var err error

	if cfg.Kubeconfig != "" {
		// Out-of-cluster: use kubeconfig file
		restConfig, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
		log.Info().Str("kubeconfig", cfg.Kubeconfig).Msg("Using kubeconfig for K8s authentication")
	} else {
		// In-cluster: use service account
		restConfig, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
		log.Info().Msg("Using in-cluster K8s authentication")
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	return NewClientFromInterface(clientset, cfg), nil
}

// NewClientFromInterface wraps an existing clientset, e.g. a fake one
func NewClientFromInterface(clientset kubernetes.Interface, cfg config.K8sConfig) *Client {
	client := &Client{clientset: clientset}

	if cfg.CacheTTLSeconds > 0 {
		client.cache = &resourceCache{
			entries: make(map[string]cacheEntry),
			ttl:     time.Duration(cfg.CacheTTLSeconds) * time.Second,
		}
		log.Info().Int("ttl_seconds", cfg.CacheTTLSeconds).Msg("K8s resource caching enabled")
	}

	return client
}

// GetConfigMap fetches a ConfigMap, serving from cache unless refresh is set
func (c *Client) GetConfigMap(ctx context.Context, namespace, name string, refresh bool) (*corev1.ConfigMap, error) {
	cacheKey := fmt.Sprintf("configmap:%s/%s", namespace, name)

	if c.cache != nil && !refresh {
		if val, ok := c.cache.get(cacheKey); ok {
			return val, nil
		}
	}

	log.Debug().Msgf("Fetching K8s configmap [%s/%s]...", namespace, name)
	configMap, err := c.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get configmap %s/%s: %w", namespace, name, err)
	}

	if c.cache != nil {
		c.cache.set(cacheKey, configMap)
	}

	return configMap, nil
}

func (rc *resourceCache) get(key string) (*corev1.ConfigMap, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	entry, ok := rc.entries[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		return nil, false
	}

	return entry.value, true
}

func (rc *resourceCache) set(key string, value *corev1.ConfigMap) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(rc.ttl),
	}
}
