package confighash

import (
	"context"
	"fmt"
	"log/slog"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// ServiceDiscovery resolves the config source's reachable address for
// a given service/environment pair by reading its Kubernetes Endpoints
// object: an in-cluster clientset, one lookup call, typed errors.
type ServiceDiscovery interface {
	// ResolveEndpoint returns a host:port for the config source
	// Endpoints object named serviceName in namespace, or an error if
	// it has no ready addresses.
	ResolveEndpoint(ctx context.Context, namespace, serviceName string) (string, error)
	Close() error
}

// Pinger is implemented by ServiceDiscovery backends that can cheaply
// verify the discovery mechanism itself is reachable, independent of
// any particular service lookup.
type Pinger interface {
	Ping(ctx context.Context) error
}

// K8sServiceDiscovery implements ServiceDiscovery using k8s.io/client-go
// against the in-cluster API server.
type K8sServiceDiscovery struct {
	clientset kubernetes.Interface
	logger    *slog.Logger
}

// NewK8sServiceDiscovery loads in-cluster config and builds a
// clientset. Returns a DiscoveryError wrapping connection failures.
func NewK8sServiceDiscovery(logger *slog.Logger) (*K8sServiceDiscovery, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, newConnectionError("failed to load in-cluster config", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, newConnectionError("failed to create clientset", err)
	}

	return &K8sServiceDiscovery{clientset: clientset, logger: logger.With("component", "confighash.discovery")}, nil
}

func (d *K8sServiceDiscovery) ResolveEndpoint(ctx context.Context, namespace, serviceName string) (string, error) {
	endpoints, err := d.clientset.CoreV1().Endpoints(namespace).Get(ctx, serviceName, metav1.GetOptions{})
	if err != nil {
		d.logger.Warn("endpoints lookup failed", "namespace", namespace, "service", serviceName, "error", err)
		return "", newConnectionError("endpoints lookup failed", err)
	}

	addr, port, ok := firstReadyAddress(endpoints)
	if !ok {
		return "", newNotFoundError(fmt.Sprintf("no ready endpoints for %s/%s", namespace, serviceName))
	}

	return fmt.Sprintf("%s:%d", addr, port), nil
}

func firstReadyAddress(ep *corev1.Endpoints) (string, int32, bool) {
	for _, subset := range ep.Subsets {
		if len(subset.Addresses) == 0 || len(subset.Ports) == 0 {
			continue
		}
		return subset.Addresses[0].IP, subset.Ports[0].Port, true
	}
	return "", 0, false
}

// Ping verifies the API server is reachable, the cheapest call
// client-go's discovery client exposes.
func (d *K8sServiceDiscovery) Ping(ctx context.Context) error {
	_, err := d.clientset.Discovery().ServerVersion()
	return err
}

func (d *K8sServiceDiscovery) Close() error {
	d.clientset = nil
	return nil
}
