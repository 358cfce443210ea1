package embedder

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// fixtureVocab is a tiny WordPiece vocabulary; ids follow line order.
var fixtureVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"طابعة", "لا", "تطبع", "printer", "##s", "Printer", "error", ",", "cafe", "café", "a", "؟",
}

func writeVocab(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(fixtureVocab, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

func testTokenizer(t *testing.T, lowercase bool) *tokenizer {
	t.Helper()
	tok, err := newTokenizer(writeVocab(t), lowercase)
	if err != nil {
		t.Fatalf("newTokenizer: %v", err)
	}
	return tok
}

func TestReadVocab(t *testing.T) {
	v, err := loadVocab(writeVocab(t))
	if err != nil {
		t.Fatalf("loadVocab: %v", err)
	}
	if v.size() != len(fixtureVocab) {
		t.Errorf("size = %d, want %d", v.size(), len(fixtureVocab))
	}
	if v.pad != 0 || v.unk != 1 || v.cls != 2 || v.sep != 3 {
		t.Errorf("special ids = %d %d %d %d", v.pad, v.unk, v.cls, v.sep)
	}
}

func TestReadVocabCRLFAndBOM(t *testing.T) {
	v, err := readVocab(strings.NewReader("\ufeff[PAD]\r\n[UNK]\r\n[CLS]\r\n[SEP]\r\nword\r\nword\r\n"))
	if err != nil {
		t.Fatalf("readVocab: %v", err)
	}
	if v.pad != 0 {
		t.Errorf("[PAD] id = %d, want 0 after BOM strip", v.pad)
	}
	if id, ok := v.id("word"); !ok || id != 4 {
		t.Errorf("id(word) = %d, %v; want first occurrence 4", id, ok)
	}
}

func TestReadVocabErrors(t *testing.T) {
	if _, err := readVocab(strings.NewReader("")); err == nil {
		t.Error("expected error for empty vocabulary")
	}
	if _, err := readVocab(strings.NewReader("[PAD]\n[UNK]\nhello\n")); err == nil {
		t.Error("expected error for vocabulary without [CLS]/[SEP]")
	}
	if _, err := loadVocab(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		lowercase bool
		want      []int64
	}{
		{"arabic", "طابعة لا تطبع", false, []int64{2, 4, 5, 6, 3}},
		{"arabic question mark", "لا؟", false, []int64{2, 5, 15, 3}},
		{"empty string", "", false, []int64{2, 3}},
		{"cased keeps case", "Printer printers", false, []int64{2, 9, 7, 8, 3}},
		{"uncased lowers", "Printer", true, []int64{2, 7, 3}},
		{"cased keeps accents", "café", false, []int64{2, 13, 3}},
		{"uncased strips accents", "café", true, []int64{2, 12, 3}},
		{"punctuation split", "error,printer", false, []int64{2, 10, 11, 7, 3}},
		{"unknown word", "scanner", false, []int64{2, 1, 3}},
		{"control characters dropped", "err\x00or\u200b", false, []int64{2, 10, 3}},
		{"overlong word", strings.Repeat("a", maxWordRunes+1), false, []int64{2, 1, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := testTokenizer(t, tc.lowercase).encode(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("encode(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestEncodeTruncates(t *testing.T) {
	tok := testTokenizer(t, false)
	ids := tok.encode(strings.TrimSpace(strings.Repeat("a ", 200)))

	if len(ids) != maxSeqLen {
		t.Fatalf("len = %d, want %d", len(ids), maxSeqLen)
	}
	if ids[0] != 2 || ids[maxSeqLen-1] != 3 {
		t.Errorf("want [CLS] first and [SEP] last, got %d ... %d", ids[0], ids[maxSeqLen-1])
	}
}

func TestBatch(t *testing.T) {
	tok := testTokenizer(t, false)
	got := tok.batch([]string{"طابعة لا تطبع", "error"})

	if got.batchSize != 2 || got.seqLen != 5 {
		t.Fatalf("shape = [%d, %d], want [2, 5]", got.batchSize, got.seqLen)
	}
	if want := []int64{2, 4, 5, 6, 3, 2, 10, 3, 0, 0}; !reflect.DeepEqual(got.inputIDs, want) {
		t.Errorf("input_ids = %v, want %v", got.inputIDs, want)
	}
	if want := []int64{1, 1, 1, 1, 1, 1, 1, 1, 0, 0}; !reflect.DeepEqual(got.attentionMask, want) {
		t.Errorf("attention_mask = %v, want %v", got.attentionMask, want)
	}
	for i, v := range got.tokenTypeIDs {
		if v != 0 {
			t.Fatalf("token_type_ids[%d] = %d, want 0", i, v)
		}
	}
}

func TestBatchEmpty(t *testing.T) {
	if got := testTokenizer(t, false).batch(nil); got.batchSize != 0 {
		t.Errorf("batchSize = %d, want 0", got.batchSize)
	}
}
