// Copyright (c) 2024 John Mylchreest <jmylchreest@gmail.com>
//
// This file is part of blsforme.
//
// blsforme is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// blsforme is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with blsforme. If not, see <https://www.gnu.org/licenses/>.

package cmd

import (
	"os"
	"testing"

	"github.com/AerynOS/blsforme/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	originalConfigFile := viper.ConfigFileUsed()
	defer func() {
		viper.Reset()
		if originalConfigFile != "" {
			viper.SetConfigFile(originalConfigFile)
			viper.ReadInConfig()
		}
	}()

	tests := []struct {
		name     string
		cfgFile  string
		setupEnv map[string]string
	}{
		{name: "default_config_path", cfgFile: ""},
		{name: "custom_config_path", cfgFile: "/tmp/custom-config.yaml"},
		{
			name: "with_env_variables",
			setupEnv: map[string]string{
				"BLSFORME_LOG_LEVEL": "debug",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalCfgFile := cfgFile
			defer func() { cfgFile = originalCfgFile }()

			viper.Reset()

			for key, value := range tt.setupEnv {
				os.Setenv(key, value)
				defer os.Unsetenv(key)
			}

			cfgFile = tt.cfgFile
			initConfig()

			if tt.setupEnv == nil {
				assert.Equal(t, "/", viper.GetString("root.path"))
				assert.Equal(t, "info", viper.GetString("log_level"))
			} else {
				if envVal, exists := tt.setupEnv["BLSFORME_LOG_LEVEL"]; exists {
					assert.Equal(t, envVal, os.Getenv("BLSFORME_LOG_LEVEL"))
				}
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"root.path", "/"},
		{"root.image", ""},
		{"no_efi_update", false},
		{"dry_run", false},
		{"kernel.search_paths", []string{"/usr/lib/kernel"}},
		{"log_level", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, viper.Get(tt.key))
		})
	}
}

func TestInitLogging(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected zerolog.Level
	}{
		{"trace_level", "trace", zerolog.TraceLevel},
		{"debug_level", "debug", zerolog.DebugLevel},
		{"info_level", "info", zerolog.InfoLevel},
		{"warn_level", "warn", zerolog.WarnLevel},
		{"error_level", "error", zerolog.ErrorLevel},
		{"fatal_level", "fatal", zerolog.FatalLevel},
		{"panic_level", "panic", zerolog.PanicLevel},
		{"invalid_level", "invalid", zerolog.InfoLevel},
		{"empty_level", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			setDefaults()
			viper.Set("log_level", tt.logLevel)

			initLogging()

			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name         string
		versionValue string
		expected     string
	}{
		{name: "version_set", versionValue: "1.2.3", expected: "1.2.3"},
		{name: "version_empty", versionValue: "", expected: "dev"},
		{name: "version_dev", versionValue: "dev", expected: "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalVersion := Version
			Version = tt.versionValue
			result := getVersion()
			assert.Equal(t, tt.expected, result)
			Version = originalVersion
		})
	}
}

func TestExecute(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	os.Args = []string{"test", "--help"}

	assert.NotPanics(t, func() {
		Execute()
	})
}

func TestRootCmdConfiguration(t *testing.T) {
	require.NotNil(t, rootCmd)

	assert.Equal(t, "blsforme", rootCmd.Use)
	assert.Equal(t, "Manage Boot Loader Specification entries for systemd-boot", rootCmd.Short)
	assert.Contains(t, rootCmd.Long, "Discover kernels and initrds")

	configFlag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)

	pathFlag := rootCmd.PersistentFlags().Lookup("path")
	require.NotNil(t, pathFlag)
	assert.Equal(t, "/", pathFlag.DefValue)

	imageFlag := rootCmd.PersistentFlags().Lookup("image")
	require.NotNil(t, imageFlag)

	noEfiFlag := rootCmd.PersistentFlags().Lookup("no-efi-update")
	require.NotNil(t, noEfiFlag)
	assert.Equal(t, "false", noEfiFlag.DefValue)

	dryRunFlag := rootCmd.PersistentFlags().Lookup("dry-run")
	require.NotNil(t, dryRunFlag)
	assert.Equal(t, "false", dryRunFlag.DefValue)
}

func TestBuildConfigurationNative(t *testing.T) {
	viper.Reset()
	setDefaults()
	viper.Set("root.path", "/")
	viper.Set("root.image", "")

	cfg, err := buildConfiguration()
	require.NoError(t, err)
	_, isNative := cfg.Root.(config.Native)
	assert.True(t, isNative)
	assert.Equal(t, "/", cfg.Root.Path())
}

func TestBuildConfigurationRejectsNonRootNativePath(t *testing.T) {
	viper.Reset()
	setDefaults()
	viper.Set("root.path", "/mnt")
	viper.Set("root.image", "")

	_, err := buildConfiguration()
	assert.Error(t, err)
}

func TestBuildConfigurationImage(t *testing.T) {
	viper.Reset()
	setDefaults()
	viper.Set("root.image", "/mnt/image")

	cfg, err := buildConfiguration()
	require.NoError(t, err)
	_, isImage := cfg.Root.(config.Image)
	assert.True(t, isImage)
	assert.Equal(t, "/mnt/image", cfg.Root.Path())
}

func TestViperBindings(t *testing.T) {
	viper.Reset()
	setDefaults()

	viper.Set("log_level", "error")
	assert.Equal(t, "error", viper.GetString("log_level"))

	viper.Set("no_efi_update", true)
	assert.True(t, viper.GetBool("no_efi_update"))
}
