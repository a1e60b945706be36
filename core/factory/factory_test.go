package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkConf struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	Retries int           `json:"retries"`
}

func TestRegistryCreateDecodesConf(t *testing.T) {
	reg := NewRegistry[sinkConf]()
	require.NoError(t, reg.Register("influx", func(conf map[string]any) (sinkConf, error) {
		var c sinkConf
		err := Decode(conf, &c)
		return c, err
	}))
	got, err := reg.Create(ModuleConfig{Type: "influx", Conf: map[string]any{
		"url":     "http://localhost:8086",
		"timeout": "5s",
		"retries": "3",
	}})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8086", got.URL)
	assert.Equal(t, 5*time.Second, got.Timeout)
	assert.Equal(t, 3, got.Retries)
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }))
	assert.Error(t, reg.Register("y", nil))
	_, err := reg.Create(ModuleConfig{Type: "z"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[x]")
	assert.Equal(t, []string{"x"}, reg.Names())
}
