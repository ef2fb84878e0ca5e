// Package config loads the runner's static configuration: the sandbox
// image and resource ceilings, phase deadlines, and output caps. It
// mirrors the nested-struct-per-concern layout used across the judge
// service's own config, loaded from YAML with defaults for every field
// so a submission can run with no config file present at all.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// SandboxConfig describes the container invocation surface.
type SandboxConfig struct {
	Image          string `yaml:"image"`
	ContainerUser  string `yaml:"containerUser"`
	CPUs           string `yaml:"cpus"`
	Memory         string `yaml:"memory"`
	PidsLimit      int    `yaml:"pidsLimit"`
	RestoreCommand string `yaml:"restoreCommand"`
	TestCommand    string `yaml:"testCommand"`
	ReportFile     string `yaml:"reportFile"`
}

// WorkspaceConfig describes where per-submission workspaces live.
type WorkspaceConfig struct {
	RootDir      string `yaml:"rootDir"`
	TemplateName string `yaml:"templateName"`
	PackageCache string `yaml:"packageCache"`
}

// TimeoutConfig describes the wall-clock deadlines for each phase.
type TimeoutConfig struct {
	RestoreSeconds int `yaml:"restoreSeconds"`
	TestSeconds    int `yaml:"testSeconds"`
	CleanupSeconds int `yaml:"cleanupSeconds"`
}

// LimitsConfig describes the output/artifact caps the runner enforces
// in-process, independent of the sandbox's own resource ceilings.
type LimitsConfig struct {
	StreamCapChars int   `yaml:"streamCapChars"`
	FieldCapChars  int   `yaml:"fieldCapChars"`
	ArtifactMaxBytes int64 `yaml:"artifactMaxBytes"`
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level runner configuration.
type Config struct {
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration literally specified by the runner's
// external-interface contract.
func Default() Config {
	return Config{
		Sandbox: SandboxConfig{
			Image:          "mcr.microsoft.com/dotnet/sdk:8.0",
			ContainerUser:  "1000:1000",
			CPUs:           "1",
			Memory:         "512m",
			PidsLimit:      128,
			RestoreCommand: "dotnet restore",
			TestCommand:    "dotnet test --no-restore --logger \"trx;LogFileName=results.trx\"",
			ReportFile:     "results.trx",
		},
		Workspace: WorkspaceConfig{
			RootDir:      workspaceRoot(),
			TemplateName: "judge-template",
			PackageCache: "_nuget-cache",
		},
		Timeouts: TimeoutConfig{
			RestoreSeconds: 60,
			TestSeconds:    6,
			CleanupSeconds: 5,
		},
		Limits: LimitsConfig{
			StreamCapChars:   64000,
			FieldCapChars:    16000,
			ArtifactMaxBytes: 2000000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func workspaceRoot() string {
	return os.TempDir() + string(os.PathSeparator) + "tracepoint-workspaces"
}

// Load reads YAML from path and merges it over Default(); a missing file
// is not an error, it just yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// FromEnv resolves the config path from TRACEPOINT_CONFIG, defaulting to
// "config.yaml" in the working directory, and loads it.
func FromEnv() (Config, error) {
	path := os.Getenv("TRACEPOINT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	return Load(path)
}
