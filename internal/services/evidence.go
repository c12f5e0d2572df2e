package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"lumera_back_end/internal/database"
	"lumera_back_end/internal/models"
	"lumera_back_end/internal/returns"
)

const (
	orphanKeyPrefix = "evidence:orphan:"
	orphanTTL       = 24 * time.Hour
	orphanMinAge    = 1 * time.Hour
)

// UploadEvidence pousse un fichier déjà validé vers MinIO et renvoie la
// pièce jointe persistable. L'objet est marqué orphelin dans Redis tant
// que l'enregistrement (retour ou appel) n'est pas créé : si la création
// échoue, le janitor le récupérera au lieu de le garder en silence.
func UploadEvidence(ctx context.Context, scope string, header *multipart.FileHeader, info returns.FileInfo) (models.MediaAttachment, error) {
	f, err := header.Open()
	if err != nil {
		return models.MediaAttachment{}, err
	}
	defer f.Close()

	ext := filepath.Ext(header.Filename)
	objectName := fmt.Sprintf("%s/%s%s", scope, uuid.New().String(), ext)
	bucket := os.Getenv("MINIO_BUCKET")

	_, err = database.MinIO.PutObject(ctx, bucket, objectName, f, header.Size,
		minio.PutObjectOptions{ContentType: info.ContentType})
	if err != nil {
		return models.MediaAttachment{}, fmt.Errorf("upload MinIO: %w", err)
	}

	// Marqueur orphelin, levé par ClaimEvidence à la création du parent.
	database.Redis.Set(ctx, orphanKeyPrefix+objectName,
		strconv.FormatInt(time.Now().Unix(), 10), orphanTTL)

	url := fmt.Sprintf("/media/%s/%s", bucket, objectName)
	return models.MediaAttachment{
		URL:              url,
		Category:         info.Category(),
		SizeBytes:        header.Size,
		DurationSeconds:  info.DurationSeconds,
		OriginalFilename: header.Filename,
	}, nil
}

// ClaimEvidence lève les marqueurs orphelins une fois le parent persisté.
func ClaimEvidence(ctx context.Context, attachments []models.MediaAttachment) {
	bucket := os.Getenv("MINIO_BUCKET")
	for _, att := range attachments {
		object := objectNameFromURL(att.URL, bucket)
		if object != "" {
			database.Redis.Del(ctx, orphanKeyPrefix+object)
		}
	}
}

func objectNameFromURL(url, bucket string) string {
	prefix := "/media/" + bucket + "/"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):]
	}
	return ""
}

// StartEvidenceJanitor récupère périodiquement les uploads jamais rattachés
// à un retour ou un appel (création échouée après l'upload).
func StartEvidenceJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			reclaimOrphans()
		}
	}()
	log.Println("🧹 Janitor des pièces jointes démarré")
}

func reclaimOrphans() {
	ctx := context.Background()
	bucket := os.Getenv("MINIO_BUCKET")
	cutoff := time.Now().Add(-orphanMinAge).Unix()

	iter := database.Redis.Scan(ctx, 0, orphanKeyPrefix+"*", 100).Iterator()
	removed := 0
	for iter.Next(ctx) {
		key := iter.Val()
		ts, err := database.Redis.Get(ctx, key).Int64()
		if err != nil || ts > cutoff {
			continue // trop récent : la soumission est peut-être en cours
		}
		object := key[len(orphanKeyPrefix):]
		if err := database.MinIO.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("⚠️ Orphelin non supprimé (%s): %v", object, err)
			continue
		}
		database.Redis.Del(ctx, key)
		removed++
	}
	if removed > 0 {
		log.Printf("🧹 %d pièce(s) jointe(s) orpheline(s) supprimée(s)", removed)
	}
}

// =============================================
// SONDE DE DURÉE VIDÉO
// =============================================

// ProbeVideoDuration lit la durée d'un MP4 depuis l'atome mvhd, sans
// décoder le flux. Renvoie nil si les métadonnées sont illisibles — le
// validateur de médias transformera ce nil en rejet explicite.
func ProbeVideoDuration(r io.ReadSeeker) *float64 {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	defer r.Seek(0, io.SeekStart)

	d := scanMP4Boxes(r, 0)
	return d
}

// scanMP4Boxes parcourt les atomes de premier niveau à la recherche de
// moov/mvhd. depth borne la récursion (moov → mvhd).
func scanMP4Boxes(r io.ReadSeeker, depth int) *float64 {
	if depth > 2 {
		return nil
	}
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return nil
		}
		size := int64(binary.BigEndian.Uint32(header[:4]))
		boxType := string(header[4:8])

		if size == 1 { // taille 64 bits
			ext := make([]byte, 8)
			if _, err := io.ReadFull(r, ext); err != nil {
				return nil
			}
			size = int64(binary.BigEndian.Uint64(ext)) - 8
		}
		if size < 8 {
			return nil
		}
		payload := size - 8

		switch boxType {
		case "moov":
			return scanMP4Boxes(r, depth+1)
		case "mvhd":
			return readMvhdDuration(r, payload)
		default:
			if _, err := r.Seek(payload, io.SeekCurrent); err != nil {
				return nil
			}
		}
	}
}

func readMvhdDuration(r io.Reader, payload int64) *float64 {
	buf := make([]byte, payload)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil
	}
	version := buf[0]
	var timescale, duration float64
	switch version {
	case 0:
		if len(buf) < 20 {
			return nil
		}
		timescale = float64(binary.BigEndian.Uint32(buf[12:16]))
		duration = float64(binary.BigEndian.Uint32(buf[16:20]))
	case 1:
		if len(buf) < 32 {
			return nil
		}
		timescale = float64(binary.BigEndian.Uint32(buf[20:24]))
		duration = float64(binary.BigEndian.Uint64(buf[24:32]))
	default:
		return nil
	}
	if timescale <= 0 {
		return nil
	}
	seconds := duration / timescale
	return &seconds
}
