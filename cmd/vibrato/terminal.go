package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"vibrato/internal/controller"
)

// enableRawMode switches the controlling terminal to raw input. ISIG stays
// on so Ctrl-C still interrupts.
func enableRawMode() (*unix.Termios, error) {
	fd := int(os.Stdin.Fd())
	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("not a terminal: %w", err)
	}

	raw := *old
	raw.Lflag &^= unix.ECHO | unix.ICANON
	raw.Iflag &^= unix.IXON | unix.ICRNL
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}
	return old, nil
}

// restoreTerminal puts the terminal back the way enableRawMode found it.
func restoreTerminal(old *unix.Termios) {
	if old == nil {
		return
	}
	unix.IoctlSetTermios(int(os.Stdin.Fd()), unix.TCSETS, old)
}

// readKeys decodes terminal input into key events until stdin closes. Arrow
// keys arrive as ESC [ A..D sequences; a bare escape is passed through.
func readKeys(r io.Reader, out chan<- controller.Key) {
	defer close(out)
	reader := bufio.NewReader(r)

	for {
		ch, _, err := reader.ReadRune()
		if err != nil {
			return
		}

		switch ch {
		case 0x1b:
			next, _, err := reader.ReadRune()
			if err != nil {
				out <- controller.Key{Kind: controller.KeyEscape}
				return
			}
			if next != '[' {
				out <- controller.Key{Kind: controller.KeyEscape}
				out <- decodePlain(next)
				continue
			}
			final, _, err := reader.ReadRune()
			if err != nil {
				return
			}
			switch final {
			case 'A':
				out <- controller.Key{Kind: controller.KeyUp}
			case 'B':
				out <- controller.Key{Kind: controller.KeyDown}
			case 'C':
				out <- controller.Key{Kind: controller.KeyRight}
			case 'D':
				out <- controller.Key{Kind: controller.KeyLeft}
			case '3':
				// Delete key sends ESC [ 3 ~, swallow the tilde.
				reader.ReadRune()
				out <- controller.Key{Kind: controller.KeyBackspace}
			}
		default:
			out <- decodePlain(ch)
		}
	}
}

func decodePlain(ch rune) controller.Key {
	switch ch {
	case '\r', '\n':
		return controller.Key{Kind: controller.KeyEnter}
	case 0x7f, 0x08:
		return controller.Key{Kind: controller.KeyBackspace}
	default:
		return controller.Key{Kind: controller.KeyRune, Rune: ch}
	}
}
