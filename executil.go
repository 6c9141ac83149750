package linerun

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/sa6mwa/linerun/port"
)

// FoldLines drains r chunk by chunk, where a chunk ends at a newline or at
// end of stream (the newline stays in the chunk). Every chunk is decoded as
// UTF-8, handed to sink, and appended to tr, in read order. With lossy false
// an invalid chunk aborts with a DecodeError; with lossy true invalid byte
// sequences are replaced with U+FFFD and folding continues. A nil sink only
// accumulates.
func FoldLines(r io.Reader, sink Sink, tr port.Transcript, lossy bool) error {
	br := bufio.NewReader(r)
	for chunk := 0; ; chunk++ {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if !utf8.ValidString(line) {
				if !lossy {
					return &DecodeError{Chunk: chunk}
				}
				line = strings.ToValidUTF8(line, "�")
			}
			if sink != nil {
				sink(line)
			}
			if tr != nil {
				tr.Append(line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// WaitProcess waits for cmd to exit via the supplied runner and returns a
// Result capturing the exit code, the wait error, and the transcript
// accumulated while the command ran (tr may be nil).
func WaitProcess(runner port.CommandRunner, cmd *exec.Cmd, tr port.Transcript) Result {
	var res Result
	err := runner.Wait(cmd)
	res.Error = err
	res.ExitCode = exitCodeFrom(err, cmd.ProcessState)
	if tr != nil {
		res.Output = tr.Bytes()
	}
	return res
}

func exitCodeFrom(waitErr error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && exitErr.ProcessState != nil {
		return exitErr.ProcessState.ExitCode()
	}
	return -1
}
