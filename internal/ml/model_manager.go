package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// VersionsFile is the registry kept in the models directory.
const VersionsFile = "model_versions.json"

// ModelVersion represents a versioned pipeline artifact
type ModelVersion struct {
	Version   string       `json:"version"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"created_at"`
	Metrics   ModelMetrics `json:"metrics"`
	IsActive  bool         `json:"is_active"`
}

// ModelMetrics contains hold-out metrics for a model
type ModelMetrics struct {
	RMSE         float64 `json:"rmse"`
	MAE          float64 `json:"mae"`
	R2           float64 `json:"r2"`
	Alpha        float64 `json:"alpha"`
	TrainingRows int     `json:"training_rows"`
	TestRows     int     `json:"test_rows"`
}

// MetricsFromMetadata copies the evaluation fields of a trained pipeline.
func MetricsFromMetadata(md ModelMetadata) ModelMetrics {
	return ModelMetrics{
		RMSE:         md.RMSE,
		MAE:          md.MAE,
		R2:           md.R2,
		Alpha:        md.Alpha,
		TrainingRows: md.TrainingRows,
		TestRows:     md.TestRows,
	}
}

// ModelManager handles model versioning and rollback
type ModelManager struct {
	mu           sync.Mutex
	modelsDir    string
	versionsFile string
	versions     []ModelVersion
}

// NewModelManager creates a new model manager
func NewModelManager(modelsDir string) (*ModelManager, error) {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}

	mm := &ModelManager{
		modelsDir:    modelsDir,
		versionsFile: filepath.Join(modelsDir, VersionsFile),
		versions:     make([]ModelVersion, 0),
	}

	// A corrupt registry must not be overwritten by the next save.
	if err := mm.loadVersions(); err != nil {
		return nil, fmt.Errorf("load %s: %w", mm.versionsFile, err)
	}

	return mm, nil
}

// AddVersion registers a saved pipeline. Relative paths are taken relative
// to the models directory. The new version is not activated.
func (mm *ModelManager) AddVersion(version, modelPath string, metrics ModelMetrics) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if version == "" {
		version = time.Now().Format("20060102-150405")
	}
	for _, v := range mm.versions {
		if v.Version == version {
			return fmt.Errorf("version %s already registered", version)
		}
	}

	mm.versions = append(mm.versions, ModelVersion{
		Version:   version,
		Path:      modelPath,
		CreatedAt: time.Now(),
		Metrics:   metrics,
	})

	// Newest first
	sort.SliceStable(mm.versions, func(i, j int) bool {
		return mm.versions[i].CreatedAt.After(mm.versions[j].CreatedAt)
	})

	return mm.saveVersions()
}

// HasVersion reports whether version is registered.
func (mm *ModelManager) HasVersion(version string) bool {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, v := range mm.versions {
		if v.Version == version {
			return true
		}
	}
	return false
}

// ActivateVersion activates a specific model version
func (mm *ModelManager) ActivateVersion(version string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.activate(version)
}

func (mm *ModelManager) activate(version string) error {
	found := false
	for i := range mm.versions {
		if mm.versions[i].Version == version {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("version %s not found", version)
	}

	for i := range mm.versions {
		mm.versions[i].IsActive = mm.versions[i].Version == version
	}

	log.Info().Str("version", version).Msg("Model version activated")
	return mm.saveVersions()
}

// Rollback activates the version registered before the active one
func (mm *ModelManager) Rollback() error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if len(mm.versions) < 2 {
		return fmt.Errorf("no previous version available for rollback")
	}

	currentIdx := -1
	for i, v := range mm.versions {
		if v.IsActive {
			currentIdx = i
			break
		}
	}
	if currentIdx == -1 {
		return fmt.Errorf("no active version found")
	}

	if currentIdx+1 < len(mm.versions) {
		return mm.activate(mm.versions[currentIdx+1].Version)
	}

	return fmt.Errorf("no previous version available")
}

// GetCurrentVersion returns the currently active version, or nil
func (mm *ModelManager) GetCurrentVersion() *ModelVersion {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for _, v := range mm.versions {
		if v.IsActive {
			v := v
			return &v
		}
	}
	return nil
}

// ListVersions returns all model versions, newest first
func (mm *ModelManager) ListVersions() []ModelVersion {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return append([]ModelVersion(nil), mm.versions...)
}

// ArtifactPath resolves a version's path against the models directory.
func (mm *ModelManager) ArtifactPath(v ModelVersion) string {
	if filepath.IsAbs(v.Path) {
		return v.Path
	}
	return filepath.Join(mm.modelsDir, v.Path)
}

// ResolveModelPath returns path unchanged when it names a file. When it
// names a directory, the active version registered there is used.
func ResolveModelPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}

	mm, err := NewModelManager(path)
	if err != nil {
		return "", err
	}
	current := mm.GetCurrentVersion()
	if current == nil {
		return "", fmt.Errorf("no active model version in %s", path)
	}
	return mm.ArtifactPath(*current), nil
}

// loadVersions loads model versions from file
func (mm *ModelManager) loadVersions() error {
	data, err := os.ReadFile(mm.versionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return json.Unmarshal(data, &mm.versions)
}

// saveVersions saves model versions to file
func (mm *ModelManager) saveVersions() error {
	data, err := json.MarshalIndent(mm.versions, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(mm.versionsFile, data, 0o600)
}
