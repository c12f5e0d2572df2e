package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func duration(s float64) *float64 { return &s }

func image(name string, size int64) FileInfo {
	return FileInfo{Filename: name, ContentType: "image/jpeg", SizeBytes: size}
}

func video(name string, size int64, secs float64) FileInfo {
	return FileInfo{Filename: name, ContentType: "video/mp4", SizeBytes: size, DurationSeconds: duration(secs)}
}

func TestValidateMediaRejectsOversizedImage(t *testing.T) {
	accepted, errs := ValidateMedia([]FileInfo{image("photo.jpg", 12<<20)}, MediaContextReturn)

	assert.Empty(t, accepted)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "photo.jpg")
}

func TestValidateMediaRejectsLongVideo(t *testing.T) {
	accepted, errs := ValidateMedia([]FileInfo{video("clip.mp4", 40<<20, 20)}, MediaContextReturn)

	assert.Empty(t, accepted)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "trop longue")
}

func TestValidateMediaRejectsUnreadableVideo(t *testing.T) {
	f := FileInfo{Filename: "broken.mp4", ContentType: "video/mp4", SizeBytes: 1 << 20}

	accepted, errs := ValidateMedia([]FileInfo{f}, MediaContextReturn)

	assert.Empty(t, accepted)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "n'a pas pu être traitée")
}

func TestValidateMediaPartialBatch(t *testing.T) {
	files := []FileInfo{
		image("a.jpg", 1<<20),
		image("b.jpg", 2<<20),
		image("c.jpg", 3<<20),
		image("huge.jpg", 12<<20),
	}

	accepted, errs := ValidateMedia(files, MediaContextReturn)

	// Les voisins valides passent, le fichier fautif produit exactement un message.
	assert.Len(t, accepted, 3)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "huge.jpg")
}

func TestValidateMediaPartialBatchOversizedVideo(t *testing.T) {
	files := []FileInfo{
		image("a.jpg", 1<<20),
		image("b.jpg", 2<<20),
		image("c.jpg", 3<<20),
		video("big.mp4", 60<<20, 10),
	}

	accepted, errs := ValidateMedia(files, MediaContextReturn)

	assert.Len(t, accepted, 3)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "big.mp4")
	assert.Contains(t, errs[0], "trop lourde")
}

func TestValidateMediaReturnLimits(t *testing.T) {
	files := []FileInfo{
		image("1.jpg", 1<<10), image("2.jpg", 1<<10), image("3.jpg", 1<<10),
		image("4.jpg", 1<<10), image("5.jpg", 1<<10), image("6.jpg", 1<<10),
		video("a.mp4", 1<<20, 10),
		video("b.mp4", 1<<20, 10),
	}

	accepted, errs := ValidateMedia(files, MediaContextReturn)

	// 5 images + 1 vidéo max pour une soumission de retour.
	assert.Len(t, accepted, 6)
	assert.Len(t, errs, 2)
	assert.Contains(t, errs[0], "6.jpg")
	assert.Contains(t, errs[1], "b.mp4")
}

func TestValidateMediaAppealLimit(t *testing.T) {
	files := []FileInfo{
		image("1.jpg", 1<<10), image("2.jpg", 1<<10), image("3.jpg", 1<<10),
		video("a.mp4", 1<<20, 10), video("b.mp4", 1<<20, 10),
		image("6.jpg", 1<<10),
	}

	accepted, errs := ValidateMedia(files, MediaContextAppeal)

	// Appel : 5 fichiers au total, images et vidéos confondues.
	assert.Len(t, accepted, 5)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "6.jpg")
}

func TestValidateMediaUnsupportedType(t *testing.T) {
	f := FileInfo{Filename: "notes.pdf", ContentType: "application/pdf", SizeBytes: 1 << 10}

	accepted, errs := ValidateMedia([]FileInfo{f}, MediaContextReturn)

	assert.Empty(t, accepted)
	assert.Len(t, errs, 1)
}

func TestMediaSummary(t *testing.T) {
	assert.Equal(t, "", MediaSummary(3, nil))
	assert.Equal(t, "2 fichier(s) refusé(s) sur 5", MediaSummary(5, []string{"a", "b"}))
}
