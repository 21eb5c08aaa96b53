package assistant

// Greeting opens every new conversation. It is shown, not stored.
const Greeting = `👋 Selamat datang di **Indeks AI**!

Saya adalah asisten virtual Anda untuk memahami Pasar Modal Indonesia. Saya dapat membantu Anda dengan:

📊 **Informasi IHSG**: Posisi IHSG terkini, pergerakan harian  
📚 **Edukasi Investasi**: Penjelasan istilah, konsep, dan strategi pasar modal  
🎯 **Analisis Objektif**: Informasi berbasis data untuk keputusan investasi yang lebih baik

**Contoh pertanyaan:**
- "Apa itu IHSG?"
- "Berita IHSG hari ini?"
- "Data IHSG seminggu terakhir?"
- "Jelaskan perbedaan saham dan obligasi"
- "Bagaimana cara membaca laporan keuangan?"

Silakan ajukan pertanyaan Anda! 🚀`

// Disclaimer is shown next to every surface that displays answers.
const Disclaimer = "Informasi yang diberikan bersifat edukatif dan bukan rekomendasi investasi. Selalu lakukan riset mandiri dan konsultasi dengan profesional berlisensi."

// QuestionCountLabel labels the per-session question counter.
const QuestionCountLabel = "💬 Total Pertanyaan"

// Fixed fallbacks used when the model cannot be reached.
const (
	ApologyText          = "⚠️ Maaf, sistem sedang mengalami kendala dalam mengakses data pasar. Silakan coba beberapa saat lagi atau tanyakan hal lain terkait edukasi investasi."
	EducationalErrorText = "⚠️ Maaf, terjadi kesalahan dalam memproses permintaan Anda. Silakan coba dengan pertanyaan yang lebih ringkas atau coba lagi."
	WeeklyPlaceholder    = "Analisis AI tidak tersedia saat ini."
)

// Causes reported when the data was fetched but cannot be narrated.
const (
	causeNoData           = "Data tidak tersedia"
	causeInsufficientData = "Data tidak cukup untuk menghitung statistik mingguan"
)
