package smtp

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/theatro/theatro/internal/domain/entity"
)

var frenchDays = [...]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// frenchDate formats t like "samedi 14 mars 2026 à 20:30".
func frenchDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d %s %d à %s",
		frenchDays[t.Weekday()], t.Day(), frenchMonths[t.Month()-1], t.Year(), t.Format("15:04"))
}

var funcs = template.FuncMap{
	"date":  frenchDate,
	"label": func(k entity.EventKind) string { return k.Label() },
}

const layout = `{{define "event"}}
<p><strong>{{.EventName}}</strong></p>
<p><strong>Date :</strong> {{date .EventStart}}</p>
<p><strong>Lieu :</strong> {{.Location}}</p>
<p><strong>Places disponibles :</strong> {{.Capacity}}</p>
{{end}}`

var bodies = map[entity.NotificationKind]string{
	entity.NotificationWelcome: `<h2>Bienvenue !</h2>
<p>Bonjour {{.MemberName}},</p>
<p>Cliquez sur le lien ci-dessous pour choisir votre mot de passe :</p>
<a href="{{.Link}}">Choisir mon mot de passe</a>
<p>Ce lien expire dans 1 heure.</p>`,

	entity.NotificationEventAnnouncement: `<h2>Un nouvel {{if eq .EventKind "show"}}spectacle{{else}}atelier{{end}} est disponible !</h2>
{{template "event" .}}
<p>Inscrivez-vous dès maintenant pour participer !</p>
<a href="{{.Link}}">Voir le {{label .EventKind}} et s'inscrire</a>`,

	entity.NotificationApplicationConfirmation: `<h2>Votre candidature a été envoyée !</h2>
<p>Bonjour {{.MemberName}},</p>
<p>Nous avons bien reçu votre candidature pour le spectacle <strong>{{.EventName}}</strong>.</p>
<p><strong>Rôle demandé :</strong> {{.RoleName}}</p>
<p><strong>Statut :</strong> En attente de validation</p>
<p><em>Vous recevrez un email à chaque changement de statut de votre candidature.</em></p>`,

	entity.NotificationWorkshopResponse: `<h2>Votre réponse a été enregistrée</h2>
<p>Bonjour {{.MemberName}},</p>
<p>Vous avez indiqué être <strong>{{if eq .Availability "available"}}disponible{{else}}non disponible{{end}}</strong> pour l'atelier <strong>{{.EventName}}</strong> du {{date .EventStart}}.</p>`,

	entity.NotificationApplicationStatus: `<div style="border-left: 4px solid {{if eq .Status "accepted"}}#4CAF50{{else}}#f44336{{end}}; padding-left: 20px;">
{{if eq .Status "accepted"}}<h2>Félicitations ! Votre candidature a été acceptée</h2>{{else}}<h2>Candidature refusée</h2>{{end}}
<p>Bonjour {{.MemberName}},</p>
<p><strong>{{if eq .EventKind "show"}}Spectacle{{else}}Atelier{{end}} :</strong> {{.EventName}}</p>
<p><strong>Rôle :</strong> {{.RoleName}}</p>
<p><strong>Date :</strong> {{date .EventStart}}</p>
{{if .Notes}}<p><strong>Note du manager :</strong> {{.Notes}}</p>{{end}}
{{if eq .Status "accepted"}}<p>Rendez-vous le jour J ! L'invitation est jointe à ce message.</p>{{else}}<p>N'hésitez pas à postuler pour d'autres événements !</p>{{end}}
</div>`,

	entity.NotificationFollowUp: `<h2>Rappel : {{label .EventKind}} à venir</h2>
<p>Nous remarquons que vous n'avez pas encore répondu concernant {{if eq .EventKind "show"}}le spectacle{{else}}l'atelier{{end}} suivant :</p>
{{template "event" .}}
<p>Merci de nous faire part de votre disponibilité dès que possible.</p>
<a href="{{.Link}}">{{if eq .EventKind "show"}}Postuler au spectacle{{else}}Répondre à l'invitation{{end}}</a>`,
}

var templates = func() map[entity.NotificationKind]*template.Template {
	parsed := make(map[entity.NotificationKind]*template.Template, len(bodies))
	for kind, body := range bodies {
		parsed[kind] = template.Must(template.New(string(kind)).Funcs(funcs).Parse(layout + body))
	}
	return parsed
}()

func subject(kind entity.NotificationKind, data entity.NotificationData) string {
	switch kind {
	case entity.NotificationWelcome:
		return "Choisissez votre mot de passe dès maintenant"
	case entity.NotificationEventAnnouncement:
		if data.EventKind == entity.EventKindShow {
			return fmt.Sprintf("Nouveau spectacle : %s", data.EventName)
		}
		return fmt.Sprintf("Nouvel atelier : %s", data.EventName)
	case entity.NotificationApplicationConfirmation:
		return fmt.Sprintf("Candidature envoyée : %s", data.EventName)
	case entity.NotificationWorkshopResponse:
		return fmt.Sprintf("Réponse enregistrée : %s", data.EventName)
	case entity.NotificationApplicationStatus:
		mark := "❌"
		if data.Status == entity.StatusAccepted {
			mark = "✅"
		}
		return fmt.Sprintf("%s %s - %s", mark, data.EventName, data.RoleName)
	case entity.NotificationFollowUp:
		return fmt.Sprintf("Relance : %s", data.EventName)
	}
	return data.EventName
}

func render(kind entity.NotificationKind, data entity.NotificationData) (string, string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("smtp: no template for notification kind %q", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("smtp: render %s: %w", kind, err)
	}
	return subject(kind, data), strings.TrimSpace(buf.String()), nil
}
