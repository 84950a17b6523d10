package qrdecode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/makiuchi-d/gozxing"
	multiqrcode "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/jo-hoe/qrsheet/internal/backend/commands"
	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Decoder finds QR payloads in photographs by running every transform of its battery
// and decoding each transformed image independently.
type Decoder struct {
	battery []commandstructure.Command
}

// NewDecoder creates a decoder running the given transforms in order.
func NewDecoder(battery []commandstructure.Command) *Decoder {
	return &Decoder{battery: battery}
}

// NewDecoderFromConfig builds the battery from configuration; an empty list selects the default battery.
func NewDecoderFromConfig(configs []commandstructure.CommandConfig) (*Decoder, error) {
	if len(configs) == 0 {
		configs = commands.DefaultBattery()
	}
	battery, err := commandstructure.BuildBattery(commandstructure.DefaultRegistry, configs)
	if err != nil {
		return nil, fmt.Errorf("invalid decoder battery: %w", err)
	}
	return NewDecoder(battery), nil
}

// Decode returns the unique URLs found in the QR codes of the image, sorted.
// Unreadable images yield an empty result.
func (d *Decoder) Decode(ctx context.Context, imageData []byte) []string {
	return ExtractURLs(d.DecodePayloads(ctx, imageData))
}

// DecodePayloads returns every distinct QR payload found across all transforms, in discovery order.
// Cancelling ctx stops the battery and returns what was found so far.
func (d *Decoder) DecodePayloads(ctx context.Context, imageData []byte) []string {
	img, format, err := commands.DecodeImage(imageData)
	if err != nil {
		slog.Debug("MultiStrategyDecoder: image could not be decoded", "error", err, "input_size_bytes", len(imageData))
		return nil
	}

	slog.Debug("MultiStrategyDecoder: starting battery",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"transforms", len(d.battery))

	seen := make(map[string]struct{})
	var payloads []string
	for idx, cmd := range d.battery {
		if ctx.Err() != nil {
			slog.Debug("MultiStrategyDecoder: cancelled", "completed_transforms", idx)
			break
		}

		found := d.attempt(cmd, img)
		newCount := 0
		for _, text := range found {
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			payloads = append(payloads, text)
			newCount++
		}
		if len(found) > 0 {
			slog.Debug("MultiStrategyDecoder: transform decoded symbols",
				"index", idx,
				"command_name", cmd.Name(),
				"symbols", len(found),
				"new_payloads", newCount)
		}
	}

	slog.Info("MultiStrategyDecoder: battery completed",
		"unique_payloads", len(payloads))
	return payloads
}

// attempt runs one transform and decodes its output. A failing transform or a
// decoder panic only loses this attempt.
func (d *Decoder) attempt(cmd commandstructure.Command, img image.Image) (found []string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("MultiStrategyDecoder: attempt panicked", "command_name", cmd.Name(), "panic", r)
			found = nil
		}
	}()

	transformed, err := cmd.Execute(img)
	if err != nil {
		if !errors.Is(err, commandstructure.ErrNotApplicable) {
			slog.Debug("MultiStrategyDecoder: transform failed", "command_name", cmd.Name(), "error", err)
		}
		return nil
	}
	return decodeSymbols(transformed)
}

// decodeSymbols reads every QR symbol of an image: all symbols the multi reader finds,
// falling back to a single symbol scan.
func decodeSymbols(img image.Image) []string {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}

	var texts []string
	if results, err := multiqrcode.NewQRCodeMultiReader().DecodeMultiple(bmp, hints); err == nil {
		for _, result := range results {
			if result.GetBarcodeFormat() == gozxing.BarcodeFormat_QR_CODE {
				texts = append(texts, result.GetText())
			}
		}
	}
	if len(texts) > 0 {
		return texts
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil || result.GetBarcodeFormat() != gozxing.BarcodeFormat_QR_CODE {
		return nil
	}
	return []string{result.GetText()}
}

// ExtractURLs pulls http(s) URLs out of payloads, strips trailing quote and bracket
// characters, and returns the sorted set.
func ExtractURLs(payloads []string) []string {
	set := make(map[string]struct{})
	for _, payload := range payloads {
		for _, match := range urlPattern.FindAllString(payload, -1) {
			url := strings.TrimRight(match, `)"'`)
			if url == "" {
				continue
			}
			set[url] = struct{}{}
		}
	}

	urls := make([]string, 0, len(set))
	for url := range set {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}
