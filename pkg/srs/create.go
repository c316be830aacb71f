package srs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/rescene-go/rescene/internal/progress"
	"github.com/rescene-go/rescene/internal/rerrors"
)

// Options configures Create.
type Options struct {
	AppName string
}

// Result reports the outcome of a Create call.
type Result struct {
	Success       bool
	OutputPath    string
	Error         error
	ContainerType ContainerType
	TrackCount    int
	SampleCRC32   uint32
	SampleSize    int64
	SrsFileSize   int64
	Warnings      []string
}

type profileFunc func([]byte) (*ProfileResult, error)
type writeFunc func(data []byte, fd FileData, tracks []*Track) ([]byte, error)

var profilers = map[ContainerType]profileFunc{
	ContainerAVI:    ProfileAVI,
	ContainerMKV:    ProfileMKV,
	ContainerMP4:    ProfileMP4,
	ContainerWMV:    ProfileWMV,
	ContainerFLAC:   ProfileFLAC,
	ContainerMP3:    ProfileMP3,
	ContainerStream: ProfileStream,
}

var writers = map[ContainerType]writeFunc{
	ContainerAVI:    WriteAVI,
	ContainerMKV:    WriteMKV,
	ContainerMP4:    WriteMP4,
	ContainerWMV:    WriteWMV,
	ContainerFLAC:   WriteFLAC,
	ContainerMP3:    WriteMP3,
	ContainerStream: WriteStream,
}

// Create builds an SRS file at outputPath from the sample at samplePath,
// detecting its container syntax and delegating to the matching profiler
// and writer, per spec.md §6's create_srs operation.
func Create(
	ctx context.Context,
	fs afero.Fs,
	outputPath string,
	samplePath string,
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

	if exists, err := afero.Exists(fs, samplePath); err != nil || !exists {
		res.Error = rerrors.NotFound(fmt.Sprintf("sample %s", samplePath), err)
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Error = rerrors.Cancelled("cancelled before reading sample", err)
		return res
	}

	data, err := afero.ReadFile(fs, samplePath)
	if err != nil {
		res.Error = rerrors.IO(fmt.Sprintf("reading sample %s", samplePath), err)
		return res
	}
	res.SampleSize = int64(len(data))

	containerType, err := DetectContainer(samplePath, data)
	if err != nil {
		res.Error = err
		return res
	}
	res.ContainerType = containerType

	profile, err := profilers[containerType](data)
	if err != nil {
		res.Error = err
		return res
	}
	reporter.Report(progress.Info{Current: 1, Total: 3, Message: "profiled sample"})

	res.SampleCRC32 = profile.CRC32
	res.TrackCount = len(profile.Tracks)
	if res.TrackCount == 0 {
		res.Warnings = append(res.Warnings, "no A/V tracks found in sample")
	}

	appName := opts.AppName
	if appName == "" {
		appName = DefaultAppName
	}
	fd := FileData{
		Flags:      DefaultFileFlags,
		AppName:    appName,
		FileName:   basename(samplePath),
		SampleSize: uint64(len(data)),
		CRC32:      profile.CRC32,
	}

	write := writers[containerType]
	srsBytes, err := write(data, fd, profile.Tracks)
	if err != nil {
		res.Error = err
		return res
	}
	reporter.Report(progress.Info{Current: 2, Total: 3, Message: "built SRS payload"})

	if err := ctx.Err(); err != nil {
		res.Error = rerrors.Cancelled("cancelled before writing SRS", err)
		return res
	}

	tmpPath := outputPath + "." + uuid.NewString() + ".tmp"
	if err := afero.WriteFile(fs, tmpPath, srsBytes, 0o644); err != nil {
		res.Error = rerrors.IO("writing SRS output", err)
		return res
	}
	if err := fs.Rename(tmpPath, outputPath); err != nil {
		_ = fs.Remove(tmpPath)
		res.Error = rerrors.IO("renaming SRS output into place", err)
		return res
	}
	reporter.Report(progress.Info{Current: 3, Total: 3, Message: "wrote SRS"})

	if info, err := fs.Stat(outputPath); err == nil {
		res.SrsFileSize = info.Size()
	}
	logger.Debug("srs: created", "sample", samplePath, "container", containerType, "tracks", res.TrackCount)
	res.Success = true
	return res
}

// DefaultAppName names the application recorded in FileData when the
// caller supplies none, matching the srr package's own default.
const DefaultAppName = "rescene"

func basename(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
