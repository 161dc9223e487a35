package broker

import (
	"html/template"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"kopperstack/internal/topic"
)

const topicsTemplate = `<!DOCTYPE html>
<html><head><title>topics</title></head><body>
<table border="1">
<tr><th>name</th><th>owner</th><th>subscribers</th></tr>
{{range .}}<tr><td>{{.Name}}</td><td>{{.Owner}}</td><td>{{len .Subscribers}}</td></tr>
{{end}}
</table>
</body></html>`

// AdminServer exposes a minimal HTTP surface over the topic list: a GET
// listing page and a POST endpoint to register new topics.
type AdminServer struct {
	Topics *topic.Service
	log    *zap.SugaredLogger
	tmpl   *template.Template
}

func NewAdminServer(topics *topic.Service, log *zap.SugaredLogger) *AdminServer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AdminServer{
		Topics: topics,
		log:    log,
		tmpl:   template.Must(template.New("topics").Parse(topicsTemplate)),
	}
}

func (a *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/topics", a.handleTopics)
	return mux
}

func (a *AdminServer) handleTopics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		topics, err := a.Topics.GetTopics()
		if err != nil {
			a.log.Errorw("admin: failed to list topics", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := a.tmpl.Execute(w, topics); err != nil {
			a.log.Errorw("admin: failed to render topics", "error", err)
		}
	case http.MethodPost:
		var dto struct {
			Name  string `json:"name"`
			Owner string `json:"owner"`
		}
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if dto.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if err := a.Topics.CreateTopic(topic.TopicEntry{Name: dto.Name, Owner: dto.Owner}); err != nil {
			a.log.Errorw("admin: failed to create topic", "topic", dto.Name, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("OK\n"))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
