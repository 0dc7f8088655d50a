package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
)

// ProgressFunc receives a sub-task's internal completion percentage (0-100).
type ProgressFunc func(percent float64)

var (
	frameRe = regexp.MustCompile(`frame=\s*(\d+)`)
	timeRe  = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// parseFrameCount extracts the running output-frame counter from an ffmpeg
// stats line.
func parseFrameCount(line string) (int64, bool) {
	matches := frameRe.FindStringSubmatch(line)
	if len(matches) < 2 {
		return 0, false
	}
	frame, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return frame, true
}

// parseClockTime extracts the "time=HH:MM:SS.cc" marker from an ffmpeg stats
// line as seconds.
func parseClockTime(line string) (float64, bool) {
	matches := timeRe.FindStringSubmatch(line)
	if len(matches) < 5 {
		return 0, false
	}
	hours, _ := strconv.Atoi(matches[1])
	mins, _ := strconv.Atoi(matches[2])
	secs, _ := strconv.Atoi(matches[3])
	centis, _ := strconv.Atoi(matches[4])
	return float64(hours)*3600 + float64(mins)*60 + float64(secs) + float64(centis)/100, true
}

// scanStatsLines splits ffmpeg diagnostic output on both \n and \r, since
// running stats lines are carriage-return separated.
func scanStatsLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[0:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// run spawns ffmpeg with the given arguments and waits for exit. When
// parseLine is non-nil every diagnostic line is fed to it as it arrives.
// A non-zero exit is reported with the exit code embedded in the error.
func (t *Toolkit) run(ctx context.Context, args []string, parseLine func(line string)) error {
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("getting stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", t.ffmpegPath, err)
	}
	if t.OnProcessStart != nil && cmd.Process != nil {
		t.OnProcessStart(cmd.Process.Pid)
	}

	tail := t.consumeStderr(stderr, parseLine)

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with code %d: %s", t.ffmpegPath, exitErr.ExitCode(), tail())
		}
		return fmt.Errorf("%s failed: %w", t.ffmpegPath, err)
	}
	return nil
}

// consumeStderr drains the diagnostic stream, feeding lines to parseLine and
// retaining the last few for error reporting. The returned function yields
// the retained tail once the stream is closed.
func (t *Toolkit) consumeStderr(r io.Reader, parseLine func(line string)) func() string {
	const keepLines = 5
	var tail []string

	scanner := bufio.NewScanner(r)
	scanner.Split(scanStatsLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if parseLine != nil {
			parseLine(line)
		}
		tail = append(tail, line)
		if len(tail) > keepLines {
			tail = tail[1:]
		}
	}

	return func() string {
		if len(tail) == 0 {
			return "no diagnostic output"
		}
		var buf bytes.Buffer
		for i, line := range tail {
			if i > 0 {
				buf.WriteString("; ")
			}
			buf.WriteString(line)
		}
		return buf.String()
	}
}
