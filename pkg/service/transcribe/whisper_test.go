package transcribe_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/service/transcribe"
)

func TestNew(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := transcribe.New("")
		gt.Error(t, err)
	})

	t.Run("accepts options", func(t *testing.T) {
		tc, err := transcribe.New("sk-test",
			transcribe.WithModel("whisper-1"),
			transcribe.WithLanguage("en"),
		)
		gt.NoError(t, err).Required()
		gt.Value(t, tc != nil).Equal(true)
	})
}

func TestTranscribeMissingFile(t *testing.T) {
	tc, err := transcribe.New("sk-test")
	gt.NoError(t, err).Required()

	_, err = tc.Transcribe(context.Background(), "/no/such/file.ogg")
	gt.Error(t, err)
}

func TestTranscribeLive(t *testing.T) {
	apiKey := os.Getenv("TEST_OPENAI_API_KEY")
	audioPath := os.Getenv("TEST_AUDIO_FILE")
	if apiKey == "" || audioPath == "" {
		t.Skip("TEST_OPENAI_API_KEY and TEST_AUDIO_FILE are not set")
	}

	tc, err := transcribe.New(apiKey)
	gt.NoError(t, err).Required()

	text, err := tc.Transcribe(context.Background(), audioPath)
	gt.NoError(t, err).Required()
	gt.Value(t, text != "").Equal(true)
}
