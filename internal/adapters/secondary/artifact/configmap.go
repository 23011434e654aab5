package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"promotion-prediction-service/internal/config"
	"promotion-prediction-service/internal/core/domain"
	ports "promotion-prediction-service/internal/core/ports/output"
)

const rewatchDelay = 2 * time.Second

// ConfigMapSource reads the artifact from a ConfigMap and can watch it for updates.
type ConfigMapSource interface {
	ports.ArtifactSource
	ports.ArtifactWatcher
}

type configMapSource struct {
	client    kubernetes.Interface
	namespace string
	name      string
	key       string
}

// NewConfigMapSource builds a Kubernetes client from cfg and reads the artifact
// from a ConfigMap key, looking in data first and binaryData second.
func NewConfigMapSource(cfg *config.KubernetesConfig, model *config.ModelConfig) (ConfigMapSource, error) {
	restCfg, err := restConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create k8s client: %w", err)
	}

	return NewConfigMapSourceWithClient(client, model.ConfigMapNamespace, model.ConfigMapName, model.ConfigMapKey), nil
}

func NewConfigMapSourceWithClient(client kubernetes.Interface, namespace, name, key string) ConfigMapSource {
	if namespace == "" {
		namespace = "default"
	}
	if key == "" {
		key = "promotion_model.json"
	}
	return &configMapSource{client: client, namespace: namespace, name: name, key: key}
}

func restConfig(cfg *config.KubernetesConfig) (*rest.Config, error) {
	if cfg.InCluster {
		return rest.InClusterConfig()
	}
	if cfg.KubeConfigPath != "" {
		return clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	}
	home, _ := os.UserHomeDir()
	return clientcmd.BuildConfigFromFlags("", filepath.Join(home, ".kube", "config"))
}

func (s *configMapSource) Location() string {
	return fmt.Sprintf("configmap://%s/%s/%s", s.namespace, s.name, s.key)
}

func (s *configMapSource) Fetch(ctx context.Context) ([]byte, error) {
	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, s.Location())
		}
		return nil, fmt.Errorf("%w: get configmap: %v", domain.ErrSourceUnavailable, err)
	}

	if v, ok := cm.Data[s.key]; ok {
		return []byte(v), nil
	}
	if v, ok := cm.BinaryData[s.key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: key %q missing in configmap %s/%s", domain.ErrArtifactNotFound, s.key, s.namespace, s.name)
}

// Watch calls onChange whenever the ConfigMap is added or modified. The watch is
// re-established when the API server closes it.
func (s *configMapSource) Watch(ctx context.Context, onChange func()) error {
	logger := log.WithField("source", s.Location())
	logger.Info("watching model configmap for changes")

	for {
		if err := s.watchOnce(ctx, onChange); err != nil {
			logger.WithError(err).Warn("configmap watch failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(rewatchDelay):
		}
	}
}

func (s *configMapSource) watchOnce(ctx context.Context, onChange func()) error {
	w, err := s.client.CoreV1().ConfigMaps(s.namespace).Watch(ctx, metav1.ListOptions{
		FieldSelector: fields.OneTermEqualSelector("metadata.name", s.name).String(),
	})
	if err != nil {
		return fmt.Errorf("%w: watch configmap: %v", domain.ErrSourceUnavailable, err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.ResultChan():
			if !ok {
				return nil
			}
			switch ev.Type {
			case watch.Added, watch.Modified:
				cm, isConfigMap := ev.Object.(*corev1.ConfigMap)
				if !isConfigMap || cm.Name != s.name {
					continue
				}
				log.WithFields(log.Fields{
					"configmap":        cm.Name,
					"resource_version": cm.ResourceVersion,
				}).Debug("model configmap changed")
				onChange()
			case watch.Deleted:
				log.WithField("configmap", s.name).Warn("model configmap deleted, keeping current model")
			case watch.Error:
				return fmt.Errorf("watch error event: %v", apierrors.FromObject(ev.Object))
			}
		}
	}
}
