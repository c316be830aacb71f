package srs

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/rescene-go/rescene/internal/rerrors"
)

var asfHeaderGUID = []byte{
	0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11,
	0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C,
}

var streamExtensions = map[string]bool{
	".vob": true, ".m2ts": true, ".mts": true, ".ts": true, ".evo": true,
	".mpg": true, ".mpeg": true,
}

// DetectContainer sniffs data's magic bytes (falling back to fileName's
// extension for the raw-stream family, which carries no reliable magic) to
// classify the sample's container syntax, per spec.md §6's
// detect_srs_container operation.
func DetectContainer(fileName string, data []byte) (ContainerType, error) {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "AVI ":
		return ContainerAVI, nil
	case len(data) >= 4 && data[0] == 0x1A && data[1] == 0x45 && data[2] == 0xDF && data[3] == 0xA3:
		return ContainerMKV, nil
	case len(data) >= 8 && string(data[4:8]) == "ftyp":
		return ContainerMP4, nil
	case len(data) >= 16 && bytes.Equal(data[0:16], asfHeaderGUID):
		return ContainerWMV, nil
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return ContainerFLAC, nil
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return ContainerMP3, nil
	case len(data) >= 2 && data[0] == 0xFF && (data[1]&0xE0) == 0xE0:
		return ContainerMP3, nil
	case streamExtensions[strings.ToLower(filepath.Ext(fileName))]:
		return ContainerStream, nil
	default:
		return ContainerUnknown, rerrors.Unsupported("no container magic matched", nil)
	}
}
