package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/offering"
)

// listOfferingsHandler returns one page of offerings (most recently updated
// first) joined with admin/pictures/documents, plus the total count.
func listOfferingsHandler(c *gin.Context) {
	page := 0
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	offerings, total, err := offeringStore.List(c.Request.Context(), page)
	if err != nil {
		c.JSON(http.StatusBadRequest, offering.Translate(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"offerings": offerings,
		"pageSize":  offering.PageSize,
		"totalNum":  total,
	})
}

func getOfferingHandler(c *gin.Context) {
	o, err := offeringStore.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "offering not found"})
			return
		}
		c.JSON(http.StatusBadRequest, offering.Translate(err))
		return
	}
	c.JSON(http.StatusOK, o)
}

// createOfferingHandler handles the multipart create form: scalar fields plus
// repeated "pictures" and "documents" file fields. Creation requires at least
// one picture.
func createOfferingHandler(c *gin.Context) {
	adminID := c.GetString("subject_id")
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	fields, err := offering.OfferingSchema.Coerce(firstValues(form.Value))
	if err != nil {
		c.JSON(http.StatusBadRequest, offering.Translate(err))
		return
	}
	created, err := offeringStore.Create(c.Request.Context(), adminID, fields,
		rawFiles(form.File["pictures"]),
		rawFiles(form.File["documents"]))
	if err != nil {
		c.JSON(http.StatusBadRequest, offering.Translate(err))
		return
	}
	c.JSON(http.StatusOK, created)
}

// updateOfferingHandler handles the multipart edit form: partial scalar
// fields, JSON-encoded pictures_to_delete / documents_to_delete lists, and
// repeated pictures_to_add / documents_to_add file fields. The whole edit is
// applied atomically.
func updateOfferingHandler(c *gin.Context) {
	adminID := c.GetString("subject_id")
	offeringID := c.Param("id")
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	values := firstValues(form.Value)

	picturesToDelete, err := parseDeleteList(values["pictures_to_delete"])
	if err != nil {
		c.JSON(http.StatusBadRequest, offering.Translate(fmt.Errorf("invalid pictures_to_delete: %w", err)))
		return
	}
	documentsToDelete, err := parseDeleteList(values["documents_to_delete"])
	if err != nil {
		c.JSON(http.StatusBadRequest, offering.Translate(fmt.Errorf("invalid documents_to_delete: %w", err)))
		return
	}
	fields, err := offering.OfferingSchema.Coerce(values)
	if err != nil {
		c.JSON(http.StatusBadRequest, offering.Translate(err))
		return
	}

	updated, err := offeringStore.ApplyEdit(c.Request.Context(), offeringID, adminID, offering.EditRequest{
		Fields:            fields,
		PicturesToAdd:     rawFiles(form.File["pictures_to_add"]),
		PicturesToDelete:  picturesToDelete,
		DocumentsToAdd:    rawFiles(form.File["documents_to_add"]),
		DocumentsToDelete: documentsToDelete,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "offering not found"})
			return
		}
		c.JSON(http.StatusBadRequest, offering.Translate(err))
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteOfferingHandler removes an offering; attachments cascade at the
// database level. Responds with the number of rows deleted (0 or 1).
func deleteOfferingHandler(c *gin.Context) {
	count, err := offeringStore.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, offering.Translate(err))
		return
	}
	c.JSON(http.StatusOK, count)
}

// firstValues flattens multipart value lists to their first entry, which is
// how the offering form submits scalar fields.
func firstValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// parseDeleteList decodes a JSON-encoded array of attachment refs. A missing
// or empty value means "delete nothing".
func parseDeleteList(raw string) ([]offering.AttachmentRef, error) {
	if raw == "" {
		return nil, nil
	}
	var refs []offering.AttachmentRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func rawFiles(headers []*multipart.FileHeader) []offering.RawFile {
	files := make([]offering.RawFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, offering.RawFile{
			Filename: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				return f, err
			},
		})
	}
	return files
}
