// Package i18n is the two-language text table behind every user-visible
// string. Lookups never fail: an unknown key is returned unchanged.
package i18n

import "strings"

type Language string

const (
	English Language = "en"
	French  Language = "fr"

	Default = French
)

var tables = map[Language]map[string]string{
	English: {
		"editor.title":               "Chronophoto Editor",
		"editor.step.upload":         "Upload",
		"editor.step.extract":        "Extract",
		"editor.step.select":         "Select",
		"editor.step.result":         "Result",
		"editor.extract.title":       "Extraction Settings",
		"editor.extract.desc":        "Adjust how frequently frames are captured from your video.",
		"editor.extract.interval":    "Interval",
		"editor.extract.more":        "More frames",
		"editor.extract.fewer":       "Fewer frames",
		"editor.extract.button":      "Start Extraction",
		"editor.select.complete":     "Generate Chronophoto",
		"editor.result.title":        "It's Ready!",
		"editor.result.desc":         "Your chronophotography masterpiece has been generated.",
		"editor.result.startover":    "Start Over",
		"editor.result.download":     "Download Image",
		"editor.result.measure":      "Measurements",
		"editor.processing":          "Merging frames...",
		"editor.select.instructions": "Select the object(s) to keep by highlighting them with the brush",
		"editor.select.frame":        "Frame",
		"editor.select.of":           "of",
		"editor.select.painted":      "Painted",
		"editor.select.none":         "No selection",
		"editor.select.previous":     "Previous",
		"editor.select.next":         "Next Frame",
		"editor.select.finish":       "Finish Selection",
		"measure.title":              "Measurements",
		"measure.scale_instr":        "First, set the scale by drawing a line on the image and indicating its real distance.",
		"measure.measure_instr":      "Now draw lines to measure distances on the image.",
		"measure.real_dist":          "Real distance:",
		"measure.set_scale":          "Set Scale",
		"measure.reset_scale":        "Reset Scale",
		"measure.clear":              "Clear measurements",
		"measure.back":               "Back to result",
		"uploader.title":             "Upload Video",
		"uploader.desc":              "Drag and drop your video file here, or click to browse",
		"uploader.limit":             "Supports MP4, WebM, and OGG up to 50MB",
		"toast.error":                "Error",
		"toast.invalid_type.title":   "Invalid file type",
		"toast.invalid_type.desc":    "Please upload a valid video file.",
		"toast.metadata.desc":        "Could not read the video duration or size.",
		"toast.extract.desc":         "Failed to extract frames",
		"toast.extract.empty":        "The video produced no frames.",
		"toast.canvas.desc":          "Could not initialize canvas",
		"toast.composite.desc":       "Failed to merge frames",
		"toast.open.desc":            "Could not open the video.",
		"toast.export.desc":          "Could not save the image.",
		"toast.success":              "Done",
		"toast.extract.done":         "Frames extracted",
		"toast.export.done":          "Image saved",
	},
	French: {
		"editor.title":               "Éditeur de Chronophoto",
		"editor.step.upload":         "Télécharger",
		"editor.step.extract":        "Extraire",
		"editor.step.select":         "Sélectionner",
		"editor.step.result":         "Résultat",
		"editor.extract.title":       "Paramètres d'extraction",
		"editor.extract.desc":        "Ajustez la fréquence de capture des images de votre vidéo.",
		"editor.extract.interval":    "Intervalle",
		"editor.extract.more":        "Plus d'images",
		"editor.extract.fewer":       "Moins d'images",
		"editor.extract.button":      "Démarrer l'extraction",
		"editor.select.complete":     "Générer la Chronophoto",
		"editor.result.title":        "C'est prêt !",
		"editor.result.desc":         "Votre chef-d'œuvre de chronophotographie a été généré.",
		"editor.result.startover":    "Recommencer",
		"editor.result.download":     "Télécharger l'image",
		"editor.result.measure":      "Mesures",
		"editor.processing":          "Fusion des images...",
		"editor.select.instructions": "Sélectionnez le ou les objets à garder en les surlignant au pinceau",
		"editor.select.frame":        "Image",
		"editor.select.of":           "sur",
		"editor.select.painted":      "Peint",
		"editor.select.none":         "Aucune sélection",
		"editor.select.previous":     "Précédent",
		"editor.select.next":         "Image suivante",
		"editor.select.finish":       "Terminer la sélection",
		"measure.title":              "Outil de mesure",
		"measure.scale_instr":        "D'abord, indiquez l'échelle en traçant un segment sur l'image et en indiquant sa distance réelle.",
		"measure.measure_instr":      "Tracez maintenant des segments pour mesurer des distances sur l'image.",
		"measure.real_dist":          "Distance réelle :",
		"measure.set_scale":          "Définir l'échelle",
		"measure.reset_scale":        "Réinitialiser l'échelle",
		"measure.clear":              "Effacer les mesures",
		"measure.back":               "Retour au résultat",
		"uploader.title":             "Télécharger la vidéo",
		"uploader.desc":              "Glissez-déposez votre fichier vidéo ici, ou cliquez pour parcourir",
		"uploader.limit":             "Prend en charge MP4, WebM et OGG jusqu'à 50 Mo",
		"toast.error":                "Erreur",
		"toast.invalid_type.title":   "Type de fichier invalide",
		"toast.invalid_type.desc":    "Veuillez importer un fichier vidéo valide.",
		"toast.metadata.desc":        "Impossible de lire la durée ou la taille de la vidéo.",
		"toast.extract.desc":         "Échec de l'extraction des images",
		"toast.extract.empty":        "La vidéo n'a produit aucune image.",
		"toast.canvas.desc":          "Impossible d'initialiser le canevas",
		"toast.composite.desc":       "Échec de la fusion des images",
		"toast.open.desc":            "Impossible d'ouvrir la vidéo.",
		"toast.export.desc":          "Impossible d'enregistrer l'image.",
		"toast.success":              "Terminé",
		"toast.extract.done":         "Images extraites",
		"toast.export.done":          "Image enregistrée",
	},
}

type Translator struct {
	lang Language
}

// New returns a translator for lang, falling back to Default for languages
// without a table.
func New(lang string) *Translator {
	l := Language(strings.ToLower(strings.TrimSpace(lang)))
	if _, ok := tables[l]; !ok {
		l = Default
	}
	return &Translator{lang: l}
}

func (t *Translator) Language() Language { return t.lang }

func (t *Translator) T(key string) string {
	if v, ok := tables[t.lang][key]; ok {
		return v
	}
	return key
}

// Keys lists the keys of the given language table.
func Keys(lang Language) []string {
	keys := make([]string, 0, len(tables[lang]))
	for k := range tables[lang] {
		keys = append(keys, k)
	}
	return keys
}
