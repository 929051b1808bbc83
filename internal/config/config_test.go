package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CamSession/internal/backend"
	"CamSession/internal/session"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camsession.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: ":8080"
prefer_facing: front
flash_mode: auto
profile: fixed
recording:
  codec: h264
  bitrate_kbps: 4000
  width: 1920
  height: 1080
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "hd1280x720", cfg.Preset, "unset fields keep defaults")
	assert.Equal(t, backend.FacingFront, cfg.Facing())
	assert.Equal(t, backend.FlashAuto, cfg.Flash())
	assert.IsType(t, session.FixedMountProfile{}, cfg.SessionProfile())
	require.NotNil(t, cfg.Recording)
	assert.Equal(t, 4000, cfg.Recording.BitrateKbps)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadEnums(t *testing.T) {
	for _, body := range []string{
		"prefer_facing: sideways\n",
		"flash_mode: strobe\n",
		"profile: spaceship\n",
		"listen: \"\"\n",
		"recording_dir: \"\"\n",
	} {
		path := writeConfig(t, body)
		_, err := Load(path)
		assert.Error(t, err, "%q", body)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "listen: [unbalanced\n")
	_, err := Load(path)
	require.Error(t, err)
}
