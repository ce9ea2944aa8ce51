package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/linkstash/config"
)

func TestBuildEngines(t *testing.T) {
	cfg := config.Load()
	cfg.Render.Backend = config.RenderBackendNone
	engines, cleanup, err := buildEngines(cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, engines.Direct)
	assert.Nil(t, engines.Rendering)
	assert.NotNil(t, engines.Metadata)

	cfg.Render.Backend = config.RenderBackendAPI
	cfg.Render.APIKey = "key"
	cfg.Metadata.Enabled = false
	engines, _, err = buildEngines(cfg)
	require.NoError(t, err)
	require.NotNil(t, engines.Rendering)
	assert.Equal(t, "render/api", engines.Rendering.Name())
	assert.Nil(t, engines.Metadata)
}

func TestBuildEngines_Misconfigured(t *testing.T) {
	cfg := config.Load()
	cfg.Render.Backend = config.RenderBackendAPI
	cfg.Render.APIKey = ""
	_, _, err := buildEngines(cfg)
	assert.Error(t, err)

	cfg.Render.Backend = "selenium"
	_, _, err = buildEngines(cfg)
	assert.Error(t, err)
}
