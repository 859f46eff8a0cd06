package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type DownloadLink struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type DownloadStep struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Badge       string        `json:"badge"`
	Primary     DownloadLink  `json:"primary"`
	Secondary   *DownloadLink `json:"secondary,omitempty"`
	Details     []string      `json:"details"`
	Note        string        `json:"note,omitempty"`
}

type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DownloadPage lists the installation steps of the till application.
// It is public and never triggers the login redirect.
// GET /download
func (p *Portal) DownloadPage(c *gin.Context) {
	steps := []DownloadStep{
		{
			Title:       "Korak 1: Instaliraj certifikat",
			Description: "Preuzmi i instaliraj certifikat da bi Windows vjerovao aplikaciji.",
			Badge:       "Obavezno",
			Primary:     DownloadLink{Label: "Preuzmi certifikat", Href: p.cfg.CertificateURL},
			Details: []string{
				"Dvoklik na preuzeti .cer",
				"Install Certificate -> Local Machine (ili Current User ako nema admin prava)",
				"Odaberi \"Trusted Root Certification Authorities\"",
				"Ponovi i instaliraj u \"Trusted Publishers\"",
			},
			Note: "Napomena: bez ovoga MSIX instalacija nece proci.",
		},
		{
			Title:       "Korak 2: Instaliraj aplikaciju (Blagajna)",
			Description: "Instalacija se pokrece nakon klika na gumb. Ako se pojavi prompt, potvrdi otvaranje App Installer-a.",
			Badge:       "Aplikacija",
			Primary:     DownloadLink{Label: "Instaliraj Blagajna", Href: p.cfg.InstallerURL},
			Details:     []string{"Ako nemas App Installer, preuzmi ga iz Microsoft Store."},
		},
	}
	if p.cfg.MSIXURL != "" {
		steps[1].Secondary = &DownloadLink{Label: "Preuzmi MSIX", Href: p.cfg.MSIXURL}
	}

	c.JSON(http.StatusOK, gin.H{
		"title": "Instalacija Blagajne",
		"steps": steps,
		"faq": []FAQEntry{
			{Question: "Sto ako MSIX javlja gresku o certifikatu?", Answer: "Certifikat nije trustan. Instaliraj ga u Trusted Root i Trusted Publishers."},
			{Question: "Sto ako nema App Installer?", Answer: "Preuzmi App Installer iz Microsoft Store."},
		},
	})
}
