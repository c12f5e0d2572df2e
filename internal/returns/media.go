package returns

import (
	"fmt"
	"strings"
)

// Limites appliquées aux pièces jointes.
const (
	MaxImageSizeBytes    = 10 << 20 // 10 MB par image
	MaxVideoSizeBytes    = 50 << 20 // 50 MB par vidéo
	MaxVideoDurationSecs = 15.0

	MaxReturnImages = 5 // soumission de retour : 5 images + 1 vidéo
	MaxReturnVideos = 1
	MaxAppealFiles  = 5 // appel : 5 fichiers au total
)

// MediaContext distingue les limites d'une soumission de retour de celles
// d'un appel.
type MediaContext string

const (
	MediaContextReturn MediaContext = "return"
	MediaContextAppeal MediaContext = "appeal"
)

// FileInfo décrit un fichier candidat, avant tout stockage. La durée est
// sondée en amont (métadonnées) ; nil pour une vidéo signifie que le
// décodage a échoué.
type FileInfo struct {
	Filename        string
	ContentType     string
	SizeBytes       int64
	DurationSeconds *float64
}

// Category déduit image/video du content-type. Vide si autre chose.
func (f FileInfo) Category() string {
	switch {
	case strings.HasPrefix(f.ContentType, "image/"):
		return "image"
	case strings.HasPrefix(f.ContentType, "video/"):
		return "video"
	}
	return ""
}

// ValidateMedia filtre un lot de fichiers. Les erreurs sont collectées,
// jamais court-circuitées : chaque fichier produit au plus un message, et
// les fichiers valides restent acceptés même si des voisins sont rejetés.
// Le validateur ne connaît pas le stockage : il ne fait que trier ce qui
// peut être transmis.
func ValidateMedia(files []FileInfo, mediaCtx MediaContext) (accepted []FileInfo, errs []string) {
	imageCount := 0
	videoCount := 0

	for _, f := range files {
		switch f.Category() {
		case "image":
			if f.SizeBytes > MaxImageSizeBytes {
				errs = append(errs, fmt.Sprintf("%s : image trop lourde (max 10 MB)", f.Filename))
				continue
			}
			if mediaCtx == MediaContextReturn && imageCount >= MaxReturnImages {
				errs = append(errs, fmt.Sprintf("%s : limite de %d images atteinte", f.Filename, MaxReturnImages))
				continue
			}
			if mediaCtx == MediaContextAppeal && imageCount+videoCount >= MaxAppealFiles {
				errs = append(errs, fmt.Sprintf("%s : limite de %d fichiers atteinte", f.Filename, MaxAppealFiles))
				continue
			}
			imageCount++
			accepted = append(accepted, f)

		case "video":
			if f.SizeBytes > MaxVideoSizeBytes {
				errs = append(errs, fmt.Sprintf("%s : vidéo trop lourde (max 50 MB)", f.Filename))
				continue
			}
			if f.DurationSeconds == nil {
				// Échec de décodage des métadonnées : rejet explicite,
				// jamais d'abandon silencieux.
				errs = append(errs, fmt.Sprintf("%s : la vidéo n'a pas pu être traitée", f.Filename))
				continue
			}
			if *f.DurationSeconds > MaxVideoDurationSecs {
				errs = append(errs, fmt.Sprintf("%s : vidéo trop longue (max %.0f secondes)", f.Filename, MaxVideoDurationSecs))
				continue
			}
			if mediaCtx == MediaContextReturn && videoCount >= MaxReturnVideos {
				errs = append(errs, fmt.Sprintf("%s : une seule vidéo autorisée", f.Filename))
				continue
			}
			if mediaCtx == MediaContextAppeal && imageCount+videoCount >= MaxAppealFiles {
				errs = append(errs, fmt.Sprintf("%s : limite de %d fichiers atteinte", f.Filename, MaxAppealFiles))
				continue
			}
			videoCount++
			accepted = append(accepted, f)

		default:
			errs = append(errs, fmt.Sprintf("%s : type de fichier non supporté (image ou vidéo uniquement)", f.Filename))
		}
	}

	return accepted, errs
}

// MediaSummary résume un lot pour l'affichage ("2 fichier(s) refusé(s) sur 5").
// Le décompte reste hors de la liste d'erreurs : une erreur par fichier.
func MediaSummary(total int, errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	return fmt.Sprintf("%d fichier(s) refusé(s) sur %d", len(errs), total)
}
