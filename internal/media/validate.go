// Package media は投入された入力ファイル参照の検査を提供します。
package media

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ValidateRefs は入力参照がすべて実在し、音声または動画であることを確認します。
// スケジューリング自体は参照の中身に関知しないため、検査は受付時の1回だけです。
func ValidateRefs(refs []string) error {
	for _, ref := range refs {
		info, err := os.Stat(ref)
		if err != nil {
			return fmt.Errorf("input not found: %s", ref)
		}
		if info.IsDir() {
			return fmt.Errorf("input is a directory: %s", ref)
		}

		mtype, err := mimetype.DetectFile(ref)
		if err != nil {
			return fmt.Errorf("failed to inspect input %s: %w", ref, err)
		}
		if !isMedia(mtype) {
			return fmt.Errorf("input %s is not audio/video (%s)", ref, mtype.String())
		}
	}
	return nil
}

func isMedia(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") || strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}
