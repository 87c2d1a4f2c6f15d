package generic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gridkeeper/autopilot/pkg/types"
)

const manifestVersion = "1.0"

func writeManifest(stagingDir string, serviceName string, kind types.ServiceKind, metadata map[string]interface{}) error {
	manifest := types.Manifest{
		ServiceName: serviceName,
		ServiceKind: kind,
		BackupDate:  time.Now().UTC(),
		Version:     manifestVersion,
		Metadata:    metadata,
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	return os.WriteFile(filepath.Join(stagingDir, "manifest.json"), data, 0o644)
}
