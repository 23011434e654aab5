package artifact

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"promotion-prediction-service/internal/core/domain"
	"promotion-prediction-service/internal/testutil"
)

func TestConfigMapSource_FetchData(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "promotion-model", Namespace: "ml"},
		Data:       map[string]string{"promotion_model.json": testutil.SampleArtifact},
	})
	src := NewConfigMapSourceWithClient(client, "ml", "promotion-model", "")

	data, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleArtifact, string(data))
	assert.Equal(t, "configmap://ml/promotion-model/promotion_model.json", src.Location())
}

func TestConfigMapSource_FetchBinaryData(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "promotion-model", Namespace: "default"},
		BinaryData: map[string][]byte{"model": []byte(testutil.SampleArtifact)},
	})
	src := NewConfigMapSourceWithClient(client, "", "promotion-model", "model")

	data, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleArtifact, string(data))
}

func TestConfigMapSource_NotFound(t *testing.T) {
	client := fake.NewSimpleClientset()
	src := NewConfigMapSourceWithClient(client, "ml", "promotion-model", "")

	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestConfigMapSource_MissingKey(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "promotion-model", Namespace: "ml"},
		Data:       map[string]string{"other.json": "{}"},
	})
	src := NewConfigMapSourceWithClient(client, "ml", "promotion-model", "")

	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestConfigMapSource_WatchTriggersOnUpdate(t *testing.T) {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "promotion-model", Namespace: "ml"},
		Data:       map[string]string{"promotion_model.json": "{}"},
	}
	client := fake.NewSimpleClientset(cm)
	src := NewConfigMapSourceWithClient(client, "ml", "promotion-model", "")

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = src.Watch(ctx, func() { calls.Add(1) }) }()

	time.Sleep(100 * time.Millisecond)
	updated := cm.DeepCopy()
	updated.Data["promotion_model.json"] = testutil.SampleArtifact
	_, err := client.CoreV1().ConfigMaps("ml").Update(context.Background(), updated, metav1.UpdateOptions{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
