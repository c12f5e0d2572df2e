package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"

	"lumera_back_end/internal/models"
)

func sendMail(to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	if err := msg.From("noreply@lumera-shop.com"); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

// SendReturnDecisionEmail prévient le client de la décision sur son retour.
// Best-effort : un échec d'envoi ne doit jamais annuler la décision.
func SendReturnDecisionEmail(to string, ret *models.ReturnRequest) {
	subject := "Votre demande de retour a été traitée"
	verdict := "a été acceptée"
	extra := "<p>Le remboursement sera traité dans les prochains jours.</p>"
	if ret.Status == models.ReturnStatusDenied {
		verdict = "a été refusée"
		extra = "<p>Vous pouvez faire appel de cette décision depuis le suivi de votre commande, avec des photos ou une vidéo à l'appui.</p>"
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Demande de retour — commande %s</h2>
		<p>Bonjour,</p>
		<p>Votre demande de retour %s.</p>
		%s
		%s
		<p style="color: #999; font-size: 12px;">Cet e-mail est envoyé automatiquement, merci de ne pas y répondre.</p>
	</div>
</body>
</html>`, ret.OrderNumber, verdict, notesBlock(ret.DecisionNotes), extra)

	if err := sendMail(to, subject, body); err != nil {
		log.Printf("⚠️ E-mail de décision non envoyé à %s: %v", to, err)
	}
}

// SendAppealDecisionEmail prévient le client de l'issue de son appel.
func SendAppealDecisionEmail(to string, appeal *models.Appeal, orderNumber string) {
	subject := "Votre appel a été traité"
	verdict := "a été accepté : votre retour va être remboursé"
	if appeal.Status == models.AppealStatusDenied {
		verdict = "a été refusé. Cette décision est définitive"
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Appel — commande %s</h2>
		<p>Bonjour,</p>
		<p>Votre appel %s.</p>
		%s
		<p style="color: #999; font-size: 12px;">Cet e-mail est envoyé automatiquement, merci de ne pas y répondre.</p>
	</div>
</body>
</html>`, orderNumber, verdict, notesBlock(appeal.DecisionNotes))

	if err := sendMail(to, subject, body); err != nil {
		log.Printf("⚠️ E-mail d'appel non envoyé à %s: %v", to, err)
	}
}

func notesBlock(notes string) string {
	if notes == "" {
		return ""
	}
	return fmt.Sprintf(`<p style="background-color: #f0f0f0; padding: 10px; border-radius: 5px;">%s</p>`, notes)
}
