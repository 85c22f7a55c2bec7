package main

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const jingleChunkSize = 4096

// resolveJinglePath rejects any resolved path that escapes the configured
// jingle root.
func resolveJinglePath(root, relPath string) (string, bool) {
	cleanRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	joined := filepath.Join(cleanRoot, relPath)
	resolved, err := filepath.Abs(joined)
	if err != nil {
		return "", false
	}
	if resolved != cleanRoot && !strings.HasPrefix(resolved, cleanRoot+string(filepath.Separator)) {
		return "", false
	}
	return resolved, true
}

// playJingle validates the request and, on success, spawns the streaming
// goroutine for a single buzzer's jingle playback.
func (g *Game) playJingle(buzzerID, jingleID string, jingles JingleLookup, jingleRoot string) {
	g.mu.Lock()
	if g.activeJingleStreams[buzzerID] {
		g.mu.Unlock()
		g.notifier.ToConsole(typeJingleError, jingleEventPayload{
			BuzzerID: buzzerID, JingleID: jingleID, Error: "already playing",
		})
		return
	}
	g.mu.Unlock()

	if !contains(g.notifier.AllBuzzerIDs(), buzzerID) {
		g.notifier.ToConsole(typeJingleError, jingleEventPayload{
			BuzzerID: buzzerID, JingleID: jingleID, Error: "not connected",
		})
		return
	}

	record, found := jingles.Jingle(jingleID)
	if !found {
		g.notifier.ToConsole(typeJingleError, jingleEventPayload{
			BuzzerID: buzzerID, JingleID: jingleID, Error: "jingle not found",
		})
		return
	}

	path, valid := resolveJinglePath(jingleRoot, record.RelPath)
	if !valid {
		g.notifier.ToConsole(typeJingleError, jingleEventPayload{
			BuzzerID: buzzerID, JingleID: jingleID, Error: "invalid file path",
		})
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		g.notifier.ToConsole(typeJingleError, jingleEventPayload{
			BuzzerID: buzzerID, JingleID: jingleID, Error: "file not found",
		})
		return
	}

	g.notifier.ToBuzzer(buzzerID, typeJingleStart, jingleStartPayload{
		JingleID: jingleID, Name: record.Name, Format: record.Format, FileSize: info.Size(),
	})
	g.notifier.ToConsole(typeJingleStarted, jingleEventPayload{BuzzerID: buzzerID, JingleID: jingleID})

	g.mu.Lock()
	g.activeJingleStreams[buzzerID] = true
	g.mu.Unlock()

	go g.streamJingleFile(buzzerID, jingleID, path, info.Size())
}

// streamJingleFile performs the serialized, in-order chunked read and send.
// One goroutine per active stream; activeJingleStreams enforces at most
// one active jingle stream per buzzerID.
func (g *Game) streamJingleFile(buzzerID, jingleID, path string, size int64) {
	defer func() {
		g.mu.Lock()
		delete(g.activeJingleStreams, buzzerID)
		g.mu.Unlock()
	}()

	f, err := os.Open(path)
	if err != nil {
		g.notifier.ToConsole(typeJingleError, jingleEventPayload{
			BuzzerID: buzzerID, JingleID: jingleID, Error: err.Error(),
		})
		return
	}
	defer f.Close()

	jid, err := parseJingleNumericID(jingleID)
	if err != nil {
		g.notifier.ToConsole(typeJingleError, jingleEventPayload{
			BuzzerID: buzzerID, JingleID: jingleID, Error: "invalid jingle id",
		})
		return
	}

	buf := make([]byte, jingleChunkSize)
	chunkIndex := uint32(0)

	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			frame := make([]byte, 8+n)
			binary.LittleEndian.PutUint32(frame[0:4], jid)
			binary.LittleEndian.PutUint32(frame[4:8], chunkIndex)
			copy(frame[8:], buf[:n])

			if !contains(g.notifier.AllBuzzerIDs(), buzzerID) {
				logf(g.cfg, "JINGLE: buzzer %s disconnected mid-stream, aborting %s", buzzerID, jingleID)
				return
			}
			if !g.notifier.BinaryToBuzzer(buzzerID, frame) {
				logf(g.cfg, "JINGLE: send failed to %s, aborting %s", buzzerID, jingleID)
				return
			}
			chunkIndex++
		}
		if readErr == io.EOF {
			g.notifier.ToBuzzer(buzzerID, typeJingleEnd, jingleEndPayload{
				JingleID: jingleID, TotalChunks: int(chunkIndex), FileSize: size,
			})
			g.notifier.ToConsole(typeJingleCompleted, jingleEventPayload{BuzzerID: buzzerID, JingleID: jingleID})
			return
		}
		if readErr != nil {
			g.notifier.ToConsole(typeJingleError, jingleEventPayload{
				BuzzerID: buzzerID, JingleID: jingleID, Error: readErr.Error(),
			})
			return
		}
	}
}

// parseJingleNumericID converts the wire-protocol string jingleId into the
// uint32 carried by the binary frame header.
func parseJingleNumericID(jingleID string) (uint32, error) {
	n, err := strconv.ParseUint(jingleID, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
