package di

import (
	"testing"

	internalrepo "FinFolio/internal/repository"
	"FinFolio/internal/service/cache"
	"FinFolio/internal/service/yahoo"
	"FinFolio/pkg/config"
	applogger "FinFolio/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Pipeline.OutputDir = t.TempDir()
	cfg.Log.Level = "disabled"
	return cfg
}

func TestInitializeAppWithDefaults(t *testing.T) {
	app, cleanup, err := InitializeApp(defaultConfig(t))
	require.NoError(t, err)
	require.NotNil(t, app)
	cleanup()
}

func TestProvidePriceSourceLayers(t *testing.T) {
	cfg := defaultConfig(t)
	l := applogger.Nop()

	src := ProvidePriceSource(cfg, nil, cache.NewTTLCache(), l)
	assert.IsType(t, &internalrepo.CachedPriceSource{}, src)

	cfg.MarketData.Cache.Enabled = false
	src = ProvidePriceSource(cfg, nil, cache.NewTTLCache(), l)
	assert.IsType(t, &yahoo.Client{}, src)
}

func TestOptionalSourcesAreNilWithoutKeys(t *testing.T) {
	cfg := defaultConfig(t)
	l := applogger.Nop()

	assert.Nil(t, ProvideBetaSource(cfg, cache.NewTTLCache(), l))
	assert.Nil(t, ProvideNewsSource(cfg, l))

	cfg.Finnhub.APIKey = "k"
	cfg.News.APIKey = "k"
	assert.NotNil(t, ProvideBetaSource(cfg, cache.NewTTLCache(), l))
	assert.NotNil(t, ProvideNewsSource(cfg, l))
}

func TestProvideCacheWithoutRedis(t *testing.T) {
	c, cleanup, err := ProvideCache(defaultConfig(t), applogger.Nop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &cache.TTLCache{}, c)
}

func TestProvideRunPublisherDisabled(t *testing.T) {
	pub, cleanup, err := ProvideRunPublisher(defaultConfig(t), ProvideRegistry(), applogger.Nop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, internalrepo.NopRunPublisher{}, pub)
}
