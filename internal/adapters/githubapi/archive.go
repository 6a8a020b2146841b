package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"chat-archive-bot/internal/domain"
	"chat-archive-bot/internal/infra/metrics"
)

// Archive реализует domain.ArchiveWriter через Contents API.
type Archive struct {
	client *github.Client
}

var _ domain.ArchiveWriter = (*Archive)(nil)

// NewArchive создаёт писателя архивов.
func NewArchive(client *github.Client) *Archive {
	return &Archive{client: client}
}

// AppendLines дописывает в файл строки, маркеры которых там ещё не встречаются.
// Повторный вызов с теми же аргументами не меняет содержимое: это свойство
// покрывает падение между записью архива и отметкой события обработанным.
func (a *Archive) AppendLines(ctx context.Context, route domain.Route, path, header string, lines []domain.ArchiveLine) (int, error) {
	owner, repo, err := splitRepository(route.Repository)
	if err != nil {
		return 0, err
	}

	existing, sha, found, err := a.getFile(ctx, owner, repo, path, route.Branch)
	if err != nil {
		return 0, err
	}

	content := existing
	if !found && header != "" {
		content = header + "\n"
	}

	missing := appendMissingLines(content, lines)
	if len(missing) == 0 {
		return 0, nil
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(missing, "\n") + "\n"

	message := fmt.Sprintf("archive: %s (+%d)", path, len(missing))
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(route.Branch),
	}

	start := time.Now()
	if found {
		opts.SHA = github.String(sha)
		_, _, err = a.client.Repositories.UpdateFile(ctx, owner, repo, path, opts)
		metrics.ObserveNetworkRequest("github", "contents_update", route.Repository, start, err)
	} else {
		_, _, err = a.client.Repositories.CreateFile(ctx, owner, repo, path, opts)
		metrics.ObserveNetworkRequest("github", "contents_create", route.Repository, start, err)
	}
	if err != nil {
		return 0, fmt.Errorf("запись архива %s/%s %s: %w", owner, repo, path, err)
	}
	return len(missing), nil
}

func (a *Archive) getFile(ctx context.Context, owner, repo, path, branch string) (content, sha string, found bool, err error) {
	start := time.Now()
	file, _, resp, err := a.client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: branch})
	metrics.ObserveNetworkRequest("github", "contents_get", owner+"/"+repo, start, err)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("чтение архива %s/%s %s: %w", owner, repo, path, err)
	}
	if file == nil {
		return "", "", false, fmt.Errorf("путь %s оказался каталогом", path)
	}
	decoded, err := file.GetContent()
	if err != nil {
		return "", "", false, fmt.Errorf("декодирование архива %s: %w", path, err)
	}
	return decoded, file.GetSHA(), true, nil
}

// appendMissingLines возвращает строки, маркеров которых нет в содержимом.
func appendMissingLines(content string, lines []domain.ArchiveLine) []string {
	var out []string
	for _, line := range lines {
		if line.EventID != "" && strings.Contains(content, eventMarker(line.EventID)) {
			continue
		}
		out = append(out, line.Text)
		content += line.Text + "\n"
	}
	return out
}

func eventMarker(eventID string) string {
	return "<!-- event:" + eventID + " -->"
}

func splitRepository(full string) (owner, repo string, err error) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("некорректное имя репозитория %q", full)
	}
	return parts[0], parts[1], nil
}
