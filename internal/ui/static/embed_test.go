package static

import (
	"io/fs"
	"testing"
)

func TestEmbeddedAssets(t *testing.T) {
	for _, name := range []string{"css/app.css", "js/app.js"} {
		data, err := fs.ReadFile(FS(), name)
		if err != nil {
			t.Errorf("%s не встроен: %v", name, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s пустой", name)
		}
	}
}
