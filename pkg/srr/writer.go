package srr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/rescene-go/rescene/internal/progress"
	"github.com/rescene-go/rescene/internal/rerrors"
	"github.com/rescene-go/rescene/pkg/rar"
)

// DefaultAppName is used when Options.AppName is empty, the single
// canonical literal spec.md §4.3 calls for.
const DefaultAppName = "rescene"

// cmtSubtype is the 3-byte RAR4 Service sub-type that marks an archive
// comment, the only Service payload SrrWriter preserves.
const cmtSubtype = "CMT"

// StoredFileInput names one auxiliary file to embed whole in the SRR,
// in the caller's intended storage order.
type StoredFileInput struct {
	Name string
	Path string
}

// Options configures SrrWriter.Create.
type Options struct {
	AppName          string
	AllowCompressed  bool
	StorePaths       bool
	ComputeOsoHashes bool
}

// Result reports the outcome of an SrrWriter.Create call.
type Result struct {
	Success         bool
	OutputPath      string
	Error           error
	VolumeCount     int
	StoredFileCount int
	SrrFileSize     int64
	Warnings        []string
}

// Create builds an SRR file at outputPath from volumes (in the caller's
// order) and storedFiles, per spec.md §4.3.
func Create(
	ctx context.Context,
	fs afero.Fs,
	outputPath string,
	volumes []string,
	storedFiles []StoredFileInput,
	opts Options,
	reporter progress.Reporter,
	logger *slog.Logger,
) *Result {
	if reporter == nil {
		reporter = progress.Null
	}
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{OutputPath: outputPath}

	for _, v := range volumes {
		if exists, err := afero.Exists(fs, v); err != nil || !exists {
			res.Error = rerrors.NotFound(fmt.Sprintf("volume %s", v), err)
			return res
		}
	}
	for _, sf := range storedFiles {
		if exists, err := afero.Exists(fs, sf.Path); err != nil || !exists {
			res.Error = rerrors.NotFound(fmt.Sprintf("stored file %s", sf.Path), err)
			return res
		}
	}

	tmpPath := outputPath + "." + uuid.NewString() + ".tmp"
	out, err := fs.Create(tmpPath)
	if err != nil {
		res.Error = rerrors.IO("creating output file", err)
		return res
	}
	cleanup := func() {
		_ = out.Close()
		_ = fs.Remove(tmpPath)
	}

	appName := opts.AppName
	if appName == "" {
		appName = DefaultAppName
	}
	if _, err := out.Write(Header{AppName: appName}.Encode()); err != nil {
		cleanup()
		res.Error = rerrors.IO("writing SrrHeader", err)
		return res
	}

	for _, sf := range storedFiles {
		if err := ctx.Err(); err != nil {
			cleanup()
			res.Error = rerrors.Cancelled("cancelled while writing stored files", err)
			return res
		}
		data, err := afero.ReadFile(fs, sf.Path)
		if err != nil {
			cleanup()
			res.Error = rerrors.IO(fmt.Sprintf("reading stored file %s", sf.Path), err)
			return res
		}
		name := sf.Name
		if name == "" {
			if opts.StorePaths {
				name = sf.Path
			} else {
				name = filepath.Base(sf.Path)
			}
		}
		if _, err := out.Write(StoredFile{Name: name, Data: data}.Encode()); err != nil {
			cleanup()
			res.Error = rerrors.IO("writing SrrStoredFile", err)
			return res
		}
		res.StoredFileCount++

		if opts.ComputeOsoHashes {
			oso := OsoHash{FileSize: uint64(len(data)), Hash: osoHash(data), Name: name}
			if _, err := out.Write(oso.Encode()); err != nil {
				cleanup()
				res.Error = rerrors.IO("writing SrrOsoHash", err)
				return res
			}
		}
	}

	for i, volPath := range volumes {
		if err := ctx.Err(); err != nil {
			cleanup()
			res.Error = rerrors.Cancelled("cancelled before volume", err)
			return res
		}

		warnings, err := writeVolume(ctx, fs, out, volPath, opts, logger)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			cleanup()
			res.Error = err
			return res
		}
		res.VolumeCount++
		reporter.Report(progress.Info{
			Current: i + 1,
			Total:   len(volumes),
			Message: fmt.Sprintf("wrote volume %s", filepath.Base(volPath)),
		})
	}

	if err := out.Close(); err != nil {
		_ = fs.Remove(tmpPath)
		res.Error = rerrors.IO("closing output file", err)
		return res
	}
	if err := fs.Rename(tmpPath, outputPath); err != nil {
		_ = fs.Remove(tmpPath)
		res.Error = rerrors.IO("renaming output file into place", err)
		return res
	}

	if info, err := fs.Stat(outputPath); err == nil {
		res.SrrFileSize = info.Size()
	}
	res.Success = true
	return res
}

func writeVolume(ctx context.Context, fs afero.Fs, out afero.File, volPath string, opts Options, logger *slog.Logger) ([]string, error) {
	var warnings []string

	if _, err := out.Write(RarFile{Name: filepath.Base(volPath)}.Encode()); err != nil {
		return warnings, rerrors.IO("writing SrrRarFile", err)
	}

	vf, err := fs.Open(volPath)
	if err != nil {
		return warnings, rerrors.IO(fmt.Sprintf("opening volume %s", volPath), err)
	}
	defer vf.Close()

	scanner, marker, err := rar.DetectAndReadMarker(vf)
	if err != nil {
		return warnings, err
	}
	if _, err := out.Write(marker); err != nil {
		return warnings, rerrors.IO("writing RAR marker", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return warnings, rerrors.Cancelled("cancelled mid-volume", err)
		}

		block, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return warnings, err
		}

		if _, err := out.Write(block.HeaderBytes); err != nil {
			return warnings, rerrors.IO("writing RAR block header", err)
		}

		switch {
		case block.IsService():
			if isCommentSubtype(block) {
				if _, err := scanner.PayloadWriter(out); err != nil {
					return warnings, err
				}
			}
			// non-comment service payloads are dropped; the header's
			// addSize value still reflects the original on-disk size.
		case block.IsFileHeader():
			if !opts.AllowCompressed && !isStoredMethod(block) {
				warnings = append(warnings, fmt.Sprintf("%s: file header uses a compressed method", filepath.Base(volPath)))
			}
			// payload dropped; reconstruction splices it back from source.
		default:
			// header-only blocks (marker/archive/end/unknown) carry no
			// payload worth copying even when one is present.
		}
	}

	logger.Debug("srr: copied volume", "path", volPath, "version", scanner.Version())
	return warnings, nil
}

// isCommentSubtype reports whether a RAR4 Service block's sub-type field
// (stored at the same offset the FileHeader uses for its name, per
// spec.md §4.3) equals "CMT".
func isCommentSubtype(block *rar.Block) bool {
	if block.Version != rar.Version4 {
		return false
	}
	if len(block.HeaderBytes) < 35 {
		return false
	}
	return bytes.Equal(block.HeaderBytes[32:35], []byte(cmtSubtype))
}

// isStoredMethod reports whether a RAR4 FileHeader's compression method
// byte (offset 25) is the uncompressed "Store" method (0x30).
func isStoredMethod(block *rar.Block) bool {
	if block.Version != rar.Version4 {
		return true
	}
	if len(block.HeaderBytes) < 26 {
		return true
	}
	return block.HeaderBytes[25] == 0x30
}
