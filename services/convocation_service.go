package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/storage"
)

const convocationTemplatePath = "templates/documents/convocation_letter.html"

// ConvocationService формирует письма-конвокации и складывает их в
// объектное хранилище. Ключ документа пишется в назначение, публичный URL
// отдаётся клиентам.
type ConvocationService interface {
	Generate(ctx context.Context, assignment *models.Assignment, referee *models.User, tournament *models.Tournament) (key string, url string, err error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

type convocationService struct {
	uploader     storage.FileUploader
	templatePath string
}

func NewConvocationService(uploader storage.FileUploader) ConvocationService {
	return &convocationService{uploader: uploader, templatePath: convocationTemplatePath}
}

func (s *convocationService) Generate(ctx context.Context, assignment *models.Assignment, referee *models.User, tournament *models.Tournament) (string, string, error) {
	tmpl, err := template.ParseFiles(s.templatePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse convocation template: %w", err)
	}

	data := struct {
		Referee     *models.User
		Tournament  *models.Tournament
		Role        models.AssignmentRole
		Notes       *string
		GeneratedAt time.Time
	}{
		Referee:     referee,
		Tournament:  tournament,
		Role:        assignment.Role,
		Notes:       assignment.Notes,
		GeneratedAt: time.Now(),
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render convocation letter: %w", err)
	}

	key := fmt.Sprintf("convocations/%d/%s.html", tournament.ID, uuid.New().String())
	result, err := s.uploader.Upload(ctx, key, "text/html; charset=utf-8", &body)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload convocation letter: %w", err)
	}

	return result.Key, s.uploader.GetPublicURL(result.Key), nil
}

func (s *convocationService) Remove(ctx context.Context, key string) error {
	return s.uploader.Delete(ctx, key)
}

func (s *convocationService) PublicURL(key string) string {
	return s.uploader.GetPublicURL(key)
}
