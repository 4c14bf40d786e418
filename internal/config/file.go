package config

// YAML config file overlay. All fields are optional pointers so that only
// keys present in the file override the defaults; CLI flags are re-parsed
// afterwards and win over both.

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the user-tunable subset of Config for YAML decoding.
type fileConfig struct {
	Gamelists    *bool   `yaml:"gamelists"`
	Media        *bool   `yaml:"media"`
	Video        *bool   `yaml:"video"`
	Images       *bool   `yaml:"images"`
	Docs         *bool   `yaml:"docs"`
	Codec        *string `yaml:"codec"`
	HevcCRF      *int    `yaml:"hevc_crf"`
	Av1CRF       *int    `yaml:"av1_crf"`
	HevcPreset   *string `yaml:"hevc_preset"`
	Av1Preset    *string `yaml:"av1_preset"`
	AudioBitrate *string `yaml:"audio_bitrate"`
	WebPQuality  *int    `yaml:"webp_quality"`
	PDFQuality   *int    `yaml:"pdf_jpeg_quality"`
	Workers      *int    `yaml:"workers"`
	LogFile      *string `yaml:"log_file"`
}

// LoadFile overlays the YAML file at path onto cfg. Unknown keys are
// rejected so typos surface immediately instead of silently using defaults.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if fc.Gamelists != nil {
		cfg.ProcessGamelists = *fc.Gamelists
	}
	if fc.Media != nil {
		cfg.ProcessMedia = *fc.Media
	}
	if fc.Video != nil {
		cfg.OptimizeVideo = *fc.Video
	}
	if fc.Images != nil {
		cfg.OptimizeImages = *fc.Images
	}
	if fc.Docs != nil {
		cfg.OptimizeDocs = *fc.Docs
	}
	if fc.Codec != nil {
		v := codecFamilyValue{&cfg.VideoCodec}
		if err := v.Set(*fc.Codec); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if fc.HevcCRF != nil {
		cfg.HevcCRF = *fc.HevcCRF
	}
	if fc.Av1CRF != nil {
		cfg.Av1CRF = *fc.Av1CRF
	}
	if fc.HevcPreset != nil {
		cfg.HevcPreset = *fc.HevcPreset
	}
	if fc.Av1Preset != nil {
		cfg.Av1Preset = *fc.Av1Preset
	}
	if fc.AudioBitrate != nil {
		cfg.AudioBitrate = *fc.AudioBitrate
	}
	if fc.WebPQuality != nil {
		cfg.WebPQuality = *fc.WebPQuality
	}
	if fc.PDFQuality != nil {
		cfg.DocJPEGQuality = *fc.PDFQuality
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
	return nil
}
