package controller

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/billingcat/timetrack/model"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func (ctrl *controller) documentInit(e *echo.Echo) {
	g := e.Group("/invoice/document")
	g.Use(ctrl.authMiddleware)
	g.Use(ctrl.requirePermission(model.PermUploadTemplate))
	g.GET("", ctrl.documentList)
	g.POST("/upload", ctrl.documentUpload)
	g.POST("/delete", ctrl.documentDelete)
}

const maxDocumentSize = 5 * 1024 * 1024 // 5 MB

type documentRow struct {
	Name      string
	Filename  string
	SizeHuman string
	ModTime   time.Time
	Custom    bool // lives in the upload directory, may be deleted
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div), "KMGTPE"[exp])
}

// safeJoin stellt sicher, dass name IM baseDir liegt (kein Path Traversal).
func safeJoin(base, name string) (string, error) {
	clean := filepath.Clean("/" + name)
	rel := strings.TrimPrefix(clean, "/")
	full := filepath.Join(base, rel)
	baseAbs, _ := filepath.Abs(base)
	fullAbs, _ := filepath.Abs(full)
	if !strings.HasPrefix(fullAbs, baseAbs+string(os.PathSeparator)) && fullAbs != baseAbs {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path")
	}
	return full, nil
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// sanitizeDocumentName converts an uploaded filename into the stored form:
// accents are transliterated, everything is lowercased, spaces become
// underscores and anything outside [a-z0-9._-] is dropped. The extension is
// kept as-is (lowercased).
func sanitizeDocumentName(in string) string {
	ext := strings.ToLower(filepath.Ext(in))
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))

	if s, _, err := transform.String(stripAccents, base); err == nil {
		base = s
	}
	base = strings.ToLower(base)
	base = strings.ReplaceAll(base, " ", "_")

	var b strings.Builder
	for _, r := range base {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	base = b.String()
	if base == "" || strings.Trim(base, ".") == "" {
		return ""
	}
	return base + ext
}

// checkUploadDir makes sure the custom document directory exists, creating
// it when missing, and reports whether it is writable. The page is still
// rendered when it is not, only the form gets disabled.
func (ctrl *controller) checkUploadDir() (string, error) {
	dir := filepath.Join(ctrl.model.Config.Basedir, ctrl.model.Config.CustomDocumentDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return dir, fmt.Errorf("upload directory %q cannot be created: %w", dir, err)
	}
	marker := filepath.Join(dir, ".writecheck")
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return dir, fmt.Errorf("upload directory %q is not writable", dir)
	}
	f.Close()
	os.Remove(marker)
	return dir, nil
}

func (ctrl *controller) documentList(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Rechnungsdokumente")

	uploadDir, dirErr := ctrl.checkUploadDir()
	if dirErr != nil {
		_ = AddFlash(c, "warning", "Das Upload-Verzeichnis ist nicht beschreibbar. Uploads sind deaktiviert.")
		m["uploadDisabled"] = true
		logger := requestLogger(c)
		logger.Warn("document upload disabled", "error", dirErr)
	}

	var rows []documentRow
	for _, doc := range ctrl.invoices.Documents().All() {
		info, err := os.Stat(doc.Path)
		if err != nil {
			continue
		}
		rows = append(rows, documentRow{
			Name:      doc.Name,
			Filename:  filepath.Base(doc.Path),
			SizeHuman: humanSize(info.Size()),
			ModTime:   info.ModTime(),
			Custom:    filepath.Dir(doc.Path) == uploadDir,
		})
	}

	m["documents"] = rows
	m["action"] = "/invoice/document/upload"
	return c.Render(http.StatusOK, "documentlist.html", m)
}

func (ctrl *controller) documentUpload(c echo.Context) error {
	uploadDir, dirErr := ctrl.checkUploadDir()
	if dirErr != nil {
		return ErrInvalid(dirErr, "Das Upload-Verzeichnis ist nicht beschreibbar.")
	}

	fh, err := c.FormFile("document")
	if err != nil {
		return ErrInvalid(err, "Es wurde keine Datei hochgeladen.")
	}
	if fh.Size > maxDocumentSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Die Datei ist zu groß (max. %s).", humanSize(maxDocumentSize)))
	}

	filename := sanitizeDocumentName(fh.Filename)
	if filename == "" {
		return ErrInvalid(fmt.Errorf("filename %q sanitizes to empty string", fh.Filename), "Der Dateiname ist ungültig.")
	}

	dstPath, err := safeJoin(uploadDir, filename)
	if err != nil {
		return err
	}

	src, err := fh.Open()
	if err != nil {
		return ErrInternal(err)
	}
	defer src.Close()

	// write to a temp name first, then move into place
	tmpPath := filepath.Join(uploadDir, uuid.NewString()+".upload")
	dst, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return ErrInternal(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return ErrInternal(err)
	}
	dst.Close()
	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return ErrInternal(err)
	}

	_ = AddFlash(c, "success", "Dokument "+filename+" wurde hochgeladen.")
	return c.Redirect(http.StatusSeeOther, "/invoice/document")
}

// documentDelete removes an uploaded document. Built-in documents live in a
// different directory and are out of reach of safeJoin here.
func (ctrl *controller) documentDelete(c echo.Context) error {
	uploadDir, dirErr := ctrl.checkUploadDir()
	if dirErr != nil {
		return ErrInvalid(dirErr, "Das Upload-Verzeichnis ist nicht erreichbar.")
	}

	name := c.FormValue("filename")
	full, err := safeJoin(uploadDir, filepath.Base(name))
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if err != nil {
		return ErrNotFound(err)
	}
	if info.IsDir() {
		return echo.NewHTTPError(http.StatusBadRequest, "refusing to delete directories")
	}
	if err := os.Remove(full); err != nil {
		return ErrInternal(err)
	}
	_ = AddFlash(c, "success", "Dokument wurde gelöscht.")
	return c.Redirect(http.StatusSeeOther, "/invoice/document")
}
