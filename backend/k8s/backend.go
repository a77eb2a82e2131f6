package k8s

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/GlintPay/defcheck/backend"
	"github.com/GlintPay/defcheck/config"
	"github.com/GlintPay/defcheck/utils"
)

const defaultNamespace = "default"

// Backend reads definitions from a ConfigMap, one `<name>.def.json` data key per definition
type Backend struct {
	Config config.K8sConfig
	Client *Client

	namespace string
	name      string
}

type configMapStore struct {
	Location string
	Data     map[string]string
}

type fileWrapper struct {
	FileName string
	Dir      string
	Content  string
}

type blob struct {
	Content string
}

func (s *Backend) Order() int {
	return s.Config.Order
}

func (s *Backend) Init(_ context.Context, appConfig config.ApplicationConfiguration) error {
	s.Config = appConfig.K8s
	if s.Config.ConfigMap == "" {
		return errors.New("k8s backend requires `k8s.configMap`")
	}
	if s.Config.DefaultNamespace == "" {
		s.Config.DefaultNamespace = defaultNamespace
	}

	namespace, name, err := parseReference(s.Config.ConfigMap, s.Config.DefaultNamespace)
	if err != nil {
		return err
	}
	s.namespace, s.name = namespace, name

	if s.Client == nil {
		client, err := NewClient(s.Config)
		if err != nil {
			return err
		}
		s.Client = client
	}
	return nil
}

func (s *Backend) GetCurrentState(ctxt context.Context, refresh bool) (*backend.State, error) {
	configMap, err := s.Client.GetConfigMap(ctxt, s.namespace, s.name, refresh)
	if err != nil {
		return nil, err
	}

	data := make(map[string]string, len(configMap.Data)+len(configMap.BinaryData))
	for k, v := range configMap.BinaryData {
		data[k] = string(v)
	}
	for k, v := range configMap.Data {
		data[k] = v
	}

	return &backend.State{
		Files:   configMapStore{Location: s.namespace + "/" + s.name, Data: data},
		Version: configMap.ResourceVersion,
	}, nil
}

// parseReference accepts `namespace/name` or just `name`, which uses the default namespace
func parseReference(ref string, defaultNamespace string) (namespace, name string, err error) {
	parts := strings.Split(ref, "/")

	switch len(parts) {
	case 1:
		namespace, name = defaultNamespace, parts[0]
	case 2:
		namespace, name = parts[0], parts[1]
	default:
		return "", "", fmt.Errorf("invalid configmap reference %q: expected `namespace/name` or `name`", ref)
	}

	if namespace == "" || name == "" {
		return "", "", fmt.Errorf("invalid configmap reference %q", ref)
	}
	return namespace, name, nil
}

func (s *Backend) Close() {
	// NOOP
}

func (c configMapStore) Open(name string) (backend.File, error) {
	content, ok := c.Data[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: c.Location + "/" + name, Err: fs.ErrNotExist}
	}
	return fileWrapper{FileName: name, Dir: c.Location, Content: content}, nil
}

func (c configMapStore) ForEach(handler func(f backend.File) error) error {
	names := make([]string, 0, len(c.Data))
	for k := range c.Data {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		if e := handler(fileWrapper{FileName: name, Dir: c.Location, Content: c.Data[name]}); e != nil {
			return e
		}
	}
	return nil
}

func (f fileWrapper) Name() string {
	return f.FileName
}

func (f fileWrapper) IsReadable() (bool, string) {
	if !utils.IsDefinitionFile(f.FileName) {
		return false, ""
	}
	return true, utils.DefinitionSuffix
}

func (f fileWrapper) FullyQualifiedName() string {
	return "k8s/configmap:" + f.Dir + "/" + f.FileName
}

func (f fileWrapper) Location() string {
	return f.Dir
}

func (f fileWrapper) Data() backend.Blob {
	return blob{Content: f.Content}
}

func (b blob) Reader() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(b.Content)), nil
}
