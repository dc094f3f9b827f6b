package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"

	"github.com/metafog/freesend/internal/pkg/fetchguard"
	"github.com/metafog/freesend/internal/pkg/goerror"
	"github.com/metafog/freesend/internal/pkg/goroutine"
	"github.com/metafog/freesend/internal/relay/entity"
)

// base64Pattern is stricter than what encoding/base64 accepts: standard
// alphabet only, optional trailing padding, no whitespace.
var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

// resolveAttachments turns attachment inputs into ready-to-send payloads,
// decoding inline content and fetching remote URLs concurrently. The first
// failure cancels the remaining fetches. Output order matches input order.
//
// host is the Host header the request arrived on; remote URLs may not target
// it, nor the configured public hostname.
func (s *Usecase) resolveAttachments(ctx context.Context, host string, in []AttachmentInput) ([]entity.Attachment, error) {
	if len(in) == 0 {
		return nil, nil
	}

	ownHosts := []string{host, s.cfg.GetString("modules.relay.own_host")}
	out := make([]entity.Attachment, len(in))

	group := goroutine.NewGroup(ctx, s.cfg.GetInt("modules.relay.max_concurrent_fetches"))
	for i, att := range in {
		group.Go(func(ctx context.Context) error {
			resolved, err := s.resolveAttachment(ctx, att, ownHosts)
			if err != nil {
				return err
			}

			out[i] = *resolved
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Usecase) resolveAttachment(ctx context.Context, att AttachmentInput, ownHosts []string) (*entity.Attachment, error) {
	if att.Content != "" {
		return decodeInlineAttachment(att)
	}

	result, err := s.fetcher.Fetch(ctx, att.URL, ownHosts...)
	if errors.Is(err, fetchguard.ErrTooLarge) {
		return nil, goerror.NewBusiness(
			fmt.Sprintf("Attachment '%s' exceeds the 25 MB remote attachment limit.", att.Filename),
			goerror.CodeInvalidInput,
		)
	}
	if errors.Is(err, fetchguard.ErrDisallowedURL) {
		return nil, goerror.NewBusiness(
			fmt.Sprintf("Attachment '%s' has a disallowed URL.", att.Filename),
			goerror.CodeInvalidInput,
		)
	}
	if err != nil {
		return nil, goerror.NewBusiness(
			fmt.Sprintf("Attachment '%s' could not be fetched: %v", att.Filename, err),
			goerror.CodeInvalidInput,
		)
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = result.ContentType
	}

	return &entity.Attachment{
		Filename:    att.Filename,
		ContentType: contentType,
		Content:     result.Data,
	}, nil
}

func decodeInlineAttachment(att AttachmentInput) (*entity.Attachment, error) {
	if !base64Pattern.MatchString(att.Content) {
		return nil, goerror.NewBusiness(
			fmt.Sprintf("Attachment '%s' has invalid base64 content.", att.Filename),
			goerror.CodeInvalidInput,
		)
	}

	data, err := base64.StdEncoding.DecodeString(att.Content)
	if err != nil {
		return nil, goerror.NewBusiness(
			fmt.Sprintf("Attachment '%s' has invalid base64 content.", att.Filename),
			goerror.CodeInvalidInput,
		)
	}

	return &entity.Attachment{
		Filename:    att.Filename,
		ContentType: att.ContentType,
		Content:     data,
	}, nil
}
