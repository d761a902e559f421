package bot

// Fixed replies sent when the configuration has no better answer.
const (
	msgNotUnderstood          = "Te entiendo. Aquí tienes algunas opciones que puedo ofrecerte:"
	msgSelectionAck           = "✅ Has seleccionado: \"%s\"\n\nGracias por tu selección. ¿En qué más puedo ayudarte?"
	msgButtonPressed          = "Has presionado el botón: \"%s\""
	msgUnsupported            = "Lo siento, solo puedo procesar mensajes de texto y opciones de lista por ahora. 😊"
	msgInteractionUnsupported = "Interacción recibida, pero no pude procesarla correctamente."
	msgSubmenuMissing         = "Escribe *menu* para ver las opciones disponibles."
	msgButtonsPrompt          = "Selecciona una opción:"
)
