package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
)

// textfile collects metrics into a private registry and dumps them in the
// node_exporter textfile format.
type textfile struct {
	path     string
	registry *prometheus.Registry
	reader   *promexporter.Exporter
}

func newTextfile(path string) (*textfile, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &textfile{path: path, registry: registry, reader: exporter}, nil
}

func (tf *textfile) write() error {
	err := prometheus.WriteToTextfile(tf.path, tf.registry)
	if err != nil {
		return fmt.Errorf("write metrics file %s: %w", tf.path, err)
	}

	return nil
}
