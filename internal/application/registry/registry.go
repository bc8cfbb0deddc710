package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"cloudeasyml-api/internal/config"
	apperrors "cloudeasyml-api/pkg/errors"
	"cloudeasyml-api/pkg/logger"
	"cloudeasyml-api/pkg/metrics"
)

// Catalog 编译期可用的插件入口，键为清单中的 entry
type Catalog map[string]Factory

// Registry 模型注册表
// 每个模型名最多一个已加载实例，并发首次加载共享同一次构造
type Registry struct {
	root     string
	manifest string
	catalog  Catalog

	mu        sync.RWMutex
	factories map[string]Factory
	defaults  map[string]map[string]any
	loaded    map[string]Model
	group     singleflight.Group
}

// NewRegistry 创建注册表
func NewRegistry(cfg *config.PluginsConfig, catalog Catalog) *Registry {
	r := &Registry{
		root:      "plugins",
		manifest:  DefaultManifestFile,
		catalog:   catalog,
		factories: make(map[string]Factory),
		defaults:  make(map[string]map[string]any),
		loaded:    make(map[string]Model),
	}
	if cfg != nil {
		if cfg.Root != "" {
			r.root = cfg.Root
		}
		if cfg.Manifest != "" {
			r.manifest = cfg.Manifest
		}
	}
	if r.catalog == nil {
		r.catalog = Catalog{}
	}
	return r
}

// DiscoverPlugins 列出根目录下包含清单文件的子目录，不校验内容
func (r *Registry) DiscoverPlugins() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read plugins root: %w", err)
	}

	plugins := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.root, e.Name(), r.manifest)); err == nil {
			plugins = append(plugins, e.Name())
		}
	}
	return plugins, nil
}

// RegisterModel 注册模型工厂
func (r *Registry) RegisterModel(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("model name is required")
	}
	if factory == nil {
		return fmt.Errorf("model %s: factory is nil", name)
	}
	if factory(map[string]any{}) == nil {
		return fmt.Errorf("model %s: factory does not produce a model", name)
	}

	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
	return nil
}

// LoadPlugin 读取插件清单，按 entry 查找工厂并以目录名注册
func (r *Registry) LoadPlugin(name string) error {
	if err := r.loadPlugin(name); err != nil {
		metrics.PluginLoadsTotal.WithLabelValues(name, "failed").Inc()
		return apperrors.ErrPluginLoadFailed.
			WithDetail(fmt.Sprintf("failed to load plugin %s: %v", name, err)).
			WithError(err)
	}
	metrics.PluginLoadsTotal.WithLabelValues(name, "success").Inc()
	return nil
}

func (r *Registry) loadPlugin(name string) error {
	manifest, err := ReadManifest(filepath.Join(r.root, name, r.manifest))
	if err != nil {
		return err
	}

	entry := manifest.Entry
	if entry == "" {
		entry = name
	}
	factory, ok := r.catalog[entry]
	if !ok {
		return fmt.Errorf("entry %q is not compiled in", entry)
	}

	if err := r.RegisterModel(name, factory); err != nil {
		return err
	}

	r.mu.Lock()
	r.defaults[name] = manifest.Config
	r.mu.Unlock()
	return nil
}

// LoadAllPlugins 逐个加载，单个失败只记录日志
func (r *Registry) LoadAllPlugins(ctx context.Context) []string {
	log := logger.FromContext(ctx)

	plugins, err := r.DiscoverPlugins()
	if err != nil {
		log.Warn("failed to discover plugins", "root", r.root, "error", err)
		return nil
	}

	loaded := make([]string, 0, len(plugins))
	for _, name := range plugins {
		manifest, err := ReadManifest(filepath.Join(r.root, name, r.manifest))
		if err == nil && !manifest.IsEnabled() {
			log.Info("plugin disabled, skipping", "plugin", name)
			continue
		}
		if err := r.LoadPlugin(name); err != nil {
			log.Warn("failed to load plugin", "plugin", name, "error", err)
			continue
		}
		loaded = append(loaded, name)
	}

	log.Info("plugins loaded", "count", len(loaded), "discovered", len(plugins))
	return loaded
}

// GetModel 返回已缓存实例，否则构造、加载并缓存
func (r *Registry) GetModel(ctx context.Context, name string, cfg map[string]any) (Model, error) {
	r.mu.RLock()
	model, ok := r.loaded[name]
	_, registered := r.factories[name]
	r.mu.RUnlock()

	if ok {
		return model, nil
	}
	if !registered {
		return nil, apperrors.ErrModelNotFound.WithDetail(fmt.Sprintf("model %s is not registered", name))
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.RLock()
		if m, ok := r.loaded[name]; ok {
			r.mu.RUnlock()
			return m, nil
		}
		factory := r.factories[name]
		merged := mergeConfig(r.defaults[name], cfg)
		r.mu.RUnlock()

		m := factory(merged)
		if m == nil {
			return nil, apperrors.ErrPluginLoadFailed.WithDetail(fmt.Sprintf("model %s: factory returned nil", name))
		}
		if err := m.Load(ctx); err != nil {
			return nil, apperrors.ErrPluginLoadFailed.
				WithDetail(fmt.Sprintf("failed to load model %s", name)).
				WithError(err)
		}

		r.mu.Lock()
		r.loaded[name] = m
		count := len(r.loaded)
		r.mu.Unlock()

		metrics.ModelsLoaded.Set(float64(count))
		logger.Info(ctx, "model loaded", "model", name)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Model), nil
}

// UnloadModel 卸载并移出缓存
func (r *Registry) UnloadModel(ctx context.Context, name string) error {
	r.mu.Lock()
	model, ok := r.loaded[name]
	if ok {
		delete(r.loaded, name)
	}
	count := len(r.loaded)
	r.mu.Unlock()

	if !ok {
		return apperrors.ErrModelNotFound.WithDetail(fmt.Sprintf("model %s is not loaded", name))
	}

	metrics.ModelsLoaded.Set(float64(count))
	if err := model.Unload(ctx); err != nil {
		return fmt.Errorf("failed to unload model %s: %w", name, err)
	}
	logger.Info(ctx, "model unloaded", "model", name)
	return nil
}

// ListModels 为每个已注册模型构造临时实例读取元数据，按名称排序
func (r *Registry) ListModels() []Metadata {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	factories := make(map[string]Factory, len(r.factories))
	for name, f := range r.factories {
		factories[name] = f
	}
	r.mu.RUnlock()

	sort.Strings(names)
	out := make([]Metadata, 0, len(names))
	for _, name := range names {
		if m := factories[name](map[string]any{}); m != nil {
			out = append(out, m.Metadata())
		}
	}
	return out
}

// RegisteredCount 已注册模型数
func (r *Registry) RegisteredCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// IsRegistered 是否已注册
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// LoadedModels 已加载模型名，按名称排序
func (r *Registry) LoadedModels() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.loaded))
	for name := range r.loaded {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// HealthCheck 汇总已加载模型的健康状态
func (r *Registry) HealthCheck(ctx context.Context) map[string]map[string]any {
	r.mu.RLock()
	models := make(map[string]Model, len(r.loaded))
	for name, m := range r.loaded {
		models[name] = m
	}
	r.mu.RUnlock()

	out := make(map[string]map[string]any, len(models))
	for name, m := range models {
		out[name] = m.HealthCheck(ctx)
	}
	return out
}

// mergeConfig 调用方配置覆盖清单默认值
func mergeConfig(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
