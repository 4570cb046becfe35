package embed

import (
	"encoding/json"
	"os"
	"strings"
	"unicode"
)

// Tokenizer is a WordPiece tokenizer loaded from a HuggingFace
// tokenizer.json. It produces fixed-length input_ids and attention_mask
// rows, truncated to the configured maximum.
type Tokenizer struct {
	vocab     map[string]int
	maxLength int
	clsID     int
	sepID     int
	padID     int
	unkID     int
}

type tokenizerFile struct {
	Model struct {
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
	} `json:"added_tokens"`
}

// NewTokenizer loads a tokenizer.json.
func NewTokenizer(path string, maxLength int) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf tokenizerFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, err
	}

	vocab := make(map[string]int, len(tf.Model.Vocab)+len(tf.AddedTokens))
	for token, id := range tf.Model.Vocab {
		vocab[token] = id
	}
	for _, at := range tf.AddedTokens {
		vocab[at.Content] = at.ID
	}

	return &Tokenizer{
		vocab:     vocab,
		maxLength: maxLength,
		clsID:     vocab["[CLS]"],
		sepID:     vocab["[SEP]"],
		padID:     vocab["[PAD]"],
		unkID:     vocab["[UNK]"],
	}, nil
}

// Encode returns fixed-length input_ids and attention_mask for one text.
func (t *Tokenizer) Encode(text string) (inputIDs, attentionMask []int64) {
	tokens := t.tokenize(strings.TrimSpace(strings.ToLower(text)))
	if max := t.maxLength - 2; len(tokens) > max {
		tokens = tokens[:max]
	}

	inputIDs = make([]int64, t.maxLength)
	attentionMask = make([]int64, t.maxLength)

	inputIDs[0] = int64(t.clsID)
	attentionMask[0] = 1
	for i, tok := range tokens {
		id, ok := t.vocab[tok]
		if !ok {
			id = t.unkID
		}
		inputIDs[i+1] = int64(id)
		attentionMask[i+1] = 1
	}
	inputIDs[len(tokens)+1] = int64(t.sepID)
	attentionMask[len(tokens)+1] = 1
	for i := len(tokens) + 2; i < t.maxLength; i++ {
		inputIDs[i] = int64(t.padID)
	}
	return inputIDs, attentionMask
}

func (t *Tokenizer) tokenize(text string) []string {
	var tokens []string
	for _, word := range splitWords(text) {
		if _, ok := t.vocab[word]; ok {
			tokens = append(tokens, word)
			continue
		}
		tokens = append(tokens, t.wordPiece(word)...)
	}
	return tokens
}

// splitWords separates on whitespace, keeping punctuation as single tokens.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

// wordPiece greedily matches the longest vocabulary prefix; continuation
// pieces carry the ## prefix. An unmatched remainder becomes [UNK].
func (t *Tokenizer) wordPiece(word string) []string {
	runes := []rune(word)
	var tokens []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		matched := ""
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if _, ok := t.vocab[piece]; ok {
				matched = piece
				break
			}
			end--
		}
		if matched == "" {
			return []string{"[UNK]"}
		}
		tokens = append(tokens, matched)
		start = end
	}
	return tokens
}
