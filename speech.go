package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// PCM format returned by the TTS model.
const (
	speechSampleRate    = 24000
	speechChannels      = 1
	speechBitsPerSample = 16
)

// preloadBatch is the number of texts synthesized concurrently by Preload.
const preloadBatch = 3

// DefaultSpeechCacheSize is the number of clips kept when no size is given.
const DefaultSpeechCacheSize = 256

var ErrEmptySpeechText = errors.New("nothing to speak")

// Synthesizer turns text into raw PCM audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// SpeechCache memoizes synthesized audio per text and voice, evicting the
// least recently used clip past its size. Concurrent requests for the same
// key share one call; failures are not cached.
type SpeechCache struct {
	synth        Synthesizer
	defaultVoice string

	audio *lru.Cache[string, []byte]
	group singleflight.Group
}

// NewSpeechCache wraps synth. An empty voice falls back to defaultVoice and a
// non-positive size to DefaultSpeechCacheSize.
func NewSpeechCache(synth Synthesizer, voice string, size int) *SpeechCache {
	if voice == "" {
		voice = defaultVoice
	}
	if size <= 0 {
		size = DefaultSpeechCacheSize
	}
	audio, _ := lru.New[string, []byte](size)
	return &SpeechCache{
		synth:        synth,
		defaultVoice: voice,
		audio:        audio,
	}
}

func speechKey(text, voice string) string {
	return text + ":::" + voice
}

// PCM returns the audio for text, synthesizing it on a cache miss.
func (c *SpeechCache) PCM(ctx context.Context, text, voice string) ([]byte, error) {
	text = cleanSpeechText(text)
	if text == "" {
		return nil, ErrEmptySpeechText
	}
	if voice == "" {
		voice = c.defaultVoice
	}
	key := speechKey(text, voice)

	if pcm, ok := c.audio.Get(key); ok {
		return pcm, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		pcm, err := c.synth.Synthesize(ctx, text, voice)
		if err != nil {
			return nil, err
		}
		c.audio.Add(key, pcm)
		return pcm, nil
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize %q: %w", text, err)
	}
	return v.([]byte), nil
}

// WAV returns the audio for text wrapped in a WAV container.
func (c *SpeechCache) WAV(ctx context.Context, text, voice string) ([]byte, error) {
	pcm, err := c.PCM(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	return wrapWAV(pcm), nil
}

// Cached reports whether audio for text and voice is already available.
func (c *SpeechCache) Cached(text, voice string) bool {
	if voice == "" {
		voice = c.defaultVoice
	}
	return c.audio.Contains(speechKey(cleanSpeechText(text), voice))
}

// Len returns the number of cached clips.
func (c *SpeechCache) Len() int {
	return c.audio.Len()
}

// Preload synthesizes texts in small concurrent batches. It stops at the
// first failing batch.
func (c *SpeechCache) Preload(ctx context.Context, texts []string, voice string) error {
	texts = lo.Uniq(lo.Filter(lo.Map(texts, func(t string, _ int) string {
		return cleanSpeechText(t)
	}), func(t string, _ int) bool { return t != "" }))

	for _, batch := range lo.Chunk(texts, preloadBatch) {
		g, gctx := errgroup.WithContext(ctx)
		for _, text := range batch {
			g.Go(func() error {
				_, err := c.PCM(gctx, text, voice)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("preload speech: %w", err)
		}
	}
	return nil
}

// wrapWAV prefixes 16-bit mono PCM with a RIFF/WAVE header.
func wrapWAV(pcm []byte) []byte {
	const headerSize = 44
	byteRate := speechSampleRate * speechChannels * speechBitsPerSample / 8
	blockAlign := speechChannels * speechBitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(headerSize + len(pcm))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(speechChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(speechSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(speechBitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
